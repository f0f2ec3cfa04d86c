package blockwaiter

import (
	"time"
)

type Config struct {
	// BatchTimeout bounds the fetch of one batch, retries included.
	BatchTimeout time.Duration
	// RetryInterval is the pause between two requests for the same batch.
	RetryInterval time.Duration
	// MaxRetries is the number of requests repeated after the first failed one.
	MaxRetries uint64
	// FetchWorkers bounds the blocks reconstructed concurrently per request.
	FetchWorkers int
	// RequestTimeout bounds one reconstruction, shared by all its callers.
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchTimeout:   time.Second,
		RetryInterval:  100 * time.Millisecond,
		MaxRetries:     3,
		FetchWorkers:   16,
		RequestTimeout: 30 * time.Second,
	}
}

type OptionFunc func(*Config)

func WithBatchTimeout(timeout time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.BatchTimeout = timeout
	}
}

func WithRetries(interval time.Duration, retries uint64) OptionFunc {
	return func(cfg *Config) {
		cfg.RetryInterval = interval
		cfg.MaxRetries = retries
	}
}

func WithRequestTimeout(timeout time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.RequestTimeout = timeout
	}
}

func WithFetchWorkers(workers int) OptionFunc {
	return func(cfg *Config) {
		cfg.FetchWorkers = workers
	}
}
