package synchronizer

// Config bounds the store lookups a synchronizer runs in parallel.
type Config struct {
	// LookupWorkers is the number of store lookups run concurrently for one
	// header or block.
	LookupWorkers int
}

func DefaultConfig() Config {
	return Config{
		LookupWorkers: 16,
	}
}

type OptionFunc func(*Config)

// WithLookupWorkers sets the fan-out of store lookups.
func WithLookupWorkers(workers int) OptionFunc {
	return func(cfg *Config) {
		cfg.LookupWorkers = workers
	}
}
