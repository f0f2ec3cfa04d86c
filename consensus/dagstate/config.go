package dagstate

import (
	"time"
)

type Config struct {
	// MaxProposalWait is how long a round with quorum waits for the
	// remaining authorities before a proposal is built on it.
	MaxProposalWait time.Duration
	// CheckDelay is the default delay before the proposer asks again.
	CheckDelay time.Duration
	// HeadersPerAuthority bounds the accepted headers kept in memory per author.
	HeadersPerAuthority int
	// RoundsCached bounds the rounds tracked for proposals.
	RoundsCached int
}

func DefaultConfig() *Config {
	return &Config{
		MaxProposalWait:     200 * time.Millisecond,
		CheckDelay:          100 * time.Millisecond,
		HeadersPerAuthority: 1000,
		RoundsCached:        100,
	}
}

type OptionFunc func(*Config)

func WithMaxProposalWait(wait time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxProposalWait = wait
	}
}

func WithCheckDelay(delay time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.CheckDelay = delay
	}
}

// WithCacheLimits sets how many headers per author and how many rounds stay
// in memory after a flush.
func WithCacheLimits(headersPerAuthority, rounds int) OptionFunc {
	return func(cfg *Config) {
		cfg.HeadersPerAuthority = headersPerAuthority
		cfg.RoundsCached = rounds
	}
}
