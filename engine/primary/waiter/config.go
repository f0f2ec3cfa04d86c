package waiter

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/dagbft/narwhal/model/narwhal"
)

type Config struct {
	// Capacity bounds the number of parked messages. Requests beyond it are
	// dropped.
	Capacity int
	// Workers is the number of parked messages resolved concurrently.
	Workers int
	// FetchTimeout bounds one request to a peer.
	FetchTimeout time.Duration
	// RetryInterval is the pause between two checks of the local stores.
	RetryInterval time.Duration
	// MaxRetries is the number of checks after which a message is given up.
	MaxRetries uint64
	// FetchRate and FetchBurst bound the requests sent to a single peer.
	FetchRate  rate.Limit
	FetchBurst int
}

func DefaultConfig() Config {
	return Config{
		Capacity:      1000,
		Workers:       8,
		FetchTimeout:  2 * time.Second,
		RetryInterval: 200 * time.Millisecond,
		MaxRetries:    25,
		FetchRate:     50,
		FetchBurst:    10,
	}
}

type OptionFunc func(*Config)

func WithCapacity(capacity int) OptionFunc {
	return func(cfg *Config) {
		cfg.Capacity = capacity
	}
}

func WithWorkers(workers int) OptionFunc {
	return func(cfg *Config) {
		cfg.Workers = workers
	}
}

// WithRetries sets how often and how long the local stores are checked
// after a fetch.
func WithRetries(interval time.Duration, retries uint64) OptionFunc {
	return func(cfg *Config) {
		cfg.RetryInterval = interval
		cfg.MaxRetries = retries
	}
}

func WithFetchTimeout(timeout time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.FetchTimeout = timeout
	}
}

// WithFetchRate sets how many requests per second a single peer receives.
func WithFetchRate(limit rate.Limit, burst int) OptionFunc {
	return func(cfg *Config) {
		cfg.FetchRate = limit
		cfg.FetchBurst = burst
	}
}

func (c Config) validate() error {
	if c.Capacity < 1 || c.Workers < 1 {
		return narwhal.NewConfigurationErrorf("waiter needs positive capacity and workers, got %d and %d", c.Capacity, c.Workers)
	}
	if c.RetryInterval <= 0 || c.FetchTimeout <= 0 {
		return narwhal.NewConfigurationErrorf("waiter needs positive retry interval and fetch timeout")
	}
	if c.FetchRate <= 0 || c.FetchBurst < 1 {
		return narwhal.NewConfigurationErrorf("waiter needs a positive fetch rate and burst, got %v and %d", c.FetchRate, c.FetchBurst)
	}
	return nil
}
