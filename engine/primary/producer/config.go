package producer

type Config struct {
	// MaxHeaderDigests bounds the batch digests referenced by one header.
	// Remaining digests wait for the next header.
	MaxHeaderDigests int
}

func DefaultConfig() Config {
	return Config{
		MaxHeaderDigests: 2000,
	}
}

type OptionFunc func(*Config)

func WithMaxHeaderDigests(n int) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxHeaderDigests = n
	}
}
