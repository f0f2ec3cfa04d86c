package core

type Config struct {
	// GCDepth is the number of rounds below the highest certified round whose
	// certificates stay incompressible in the DAG.
	GCDepth uint64
	// HeaderQueueCapacity, VoteQueueCapacity and CertificateQueueCapacity
	// bound the inbound queues. Messages beyond them are dropped.
	HeaderQueueCapacity      int
	VoteQueueCapacity        int
	CertificateQueueCapacity int
}

func DefaultConfig() Config {
	return Config{
		GCDepth:                  50,
		HeaderQueueCapacity:      1000,
		VoteQueueCapacity:        10_000,
		CertificateQueueCapacity: 10_000,
	}
}

type OptionFunc func(*Config)

func WithGCDepth(depth uint64) OptionFunc {
	return func(cfg *Config) {
		cfg.GCDepth = depth
	}
}

// WithQueueCapacity sets the capacity of all inbound queues.
func WithQueueCapacity(capacity int) OptionFunc {
	return func(cfg *Config) {
		cfg.HeaderQueueCapacity = capacity
		cfg.VoteQueueCapacity = capacity
		cfg.CertificateQueueCapacity = capacity
	}
}
