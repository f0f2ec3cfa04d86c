// Package config holds the settings of a local network of primaries. Values
// come from flags, NARWHAL_ environment variables and an optional config file,
// in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dagbft/narwhal/consensus/dagstate"
	"github.com/dagbft/narwhal/engine/primary"
	"github.com/dagbft/narwhal/engine/primary/blockwaiter"
	"github.com/dagbft/narwhal/engine/primary/core"
	"github.com/dagbft/narwhal/engine/primary/producer"
	"github.com/dagbft/narwhal/engine/primary/synchronizer"
	"github.com/dagbft/narwhal/engine/primary/waiter"
	"github.com/dagbft/narwhal/storage"
)

const EnvPrefix = "NARWHAL"

const (
	keyConfig = "config"
)

type Config struct {
	Authorities    int
	Duration       time.Duration
	DataDir        string
	DBEngine       string
	LogLevel       string
	MetricsAddress string

	GCDepth          uint64
	MaxHeaderDigests int
	MaxProposalWait  time.Duration
	CheckDelay       time.Duration
	BatchTimeout     time.Duration
	WaiterCapacity   int

	BatchInterval   time.Duration
	BatchSize       int
	TransactionSize int

	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Authorities:      4,
		Duration:         30 * time.Second,
		DataDir:          "data",
		DBEngine:         storage.EngineBadger,
		LogLevel:         "info",
		MetricsAddress:   ":8080",
		GCDepth:          core.DefaultConfig().GCDepth,
		MaxHeaderDigests: producer.DefaultConfig().MaxHeaderDigests,
		MaxProposalWait:  dagstate.DefaultConfig().MaxProposalWait,
		CheckDelay:       dagstate.DefaultConfig().CheckDelay,
		BatchTimeout:     blockwaiter.DefaultConfig().BatchTimeout,
		WaiterCapacity:   waiter.DefaultConfig().Capacity,
		BatchInterval:    50 * time.Millisecond,
		BatchSize:        100,
		TransactionSize:  512,
		StartupTimeout:   10 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// BindFlags registers a flag for every setting, with the current values as
// defaults.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.String(keyConfig, "", "path of a config file")
	flags.IntVarP(&c.Authorities, "authorities", "n", c.Authorities, "number of authorities in the committee")
	flags.DurationVarP(&c.Duration, "duration", "t", c.Duration, "how long to run, 0 runs until interrupted")
	flags.StringVarP(&c.DataDir, "datadir", "d", c.DataDir, "directory of the authority databases")
	flags.StringVar(&c.DBEngine, "db-engine", c.DBEngine, "storage engine, badger or pebble")
	flags.StringVarP(&c.LogLevel, "loglevel", "l", c.LogLevel, "level for logging output")
	flags.StringVar(&c.MetricsAddress, "metrics-address", c.MetricsAddress, "listen address of the metrics server, empty disables it")
	flags.Uint64Var(&c.GCDepth, "gc-depth", c.GCDepth, "rounds kept incompressible in the certificate DAG")
	flags.IntVar(&c.MaxHeaderDigests, "max-header-digests", c.MaxHeaderDigests, "maximum number of batch digests per header")
	flags.DurationVar(&c.MaxProposalWait, "max-proposal-wait", c.MaxProposalWait, "how long a round with quorum waits for the remaining authorities")
	flags.DurationVar(&c.CheckDelay, "check-delay", c.CheckDelay, "interval at which the producer checks whether to propose")
	flags.DurationVar(&c.BatchTimeout, "batch-timeout", c.BatchTimeout, "timeout of a batch request when reconstructing blocks")
	flags.IntVar(&c.WaiterCapacity, "waiter-capacity", c.WaiterCapacity, "maximum number of messages parked for missing dependencies")
	flags.DurationVar(&c.BatchInterval, "batch-interval", c.BatchInterval, "interval at which each worker seals a batch")
	flags.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "transactions per batch")
	flags.IntVar(&c.TransactionSize, "transaction-size", c.TransactionSize, "size of a generated transaction in bytes")
	flags.DurationVar(&c.StartupTimeout, "startup-timeout", c.StartupTimeout, "how long to wait for components to start")
	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "how long to wait for components to stop")
}

// Load applies the config file and the environment to every flag that was not
// set on the command line, then validates the result.
func (c *Config) Load(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path, err := flags.GetString(keyConfig)
	if err != nil {
		return fmt.Errorf("could not read flag %q: %w", keyConfig, err)
	}
	if path != "" {
		v.SetConfigFile(path)
		err = v.ReadInConfig()
		if err != nil {
			return fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	var result *multierror.Error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig || f.Changed {
			return
		}
		// AutomaticEnv only resolves keys viper knows of
		err := v.BindEnv(f.Name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not bind environment to flag %q: %w", f.Name, err))
			return
		}
		if !v.IsSet(f.Name) {
			return
		}
		err = flags.Set(f.Name, v.GetString(f.Name))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not set flag %q: %w", f.Name, err))
		}
	})
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks the settings that no component validates itself.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Authorities < 1 {
		result = multierror.Append(result, fmt.Errorf("committee needs at least one authority, got %d", c.Authorities))
	}
	if c.DBEngine != storage.EngineBadger && c.DBEngine != storage.EnginePebble {
		result = multierror.Append(result, fmt.Errorf("unknown storage engine %q", c.DBEngine))
	}
	if c.BatchInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("batch interval must be positive, got %s", c.BatchInterval))
	}
	if c.BatchSize < 1 || c.TransactionSize < 1 {
		result = multierror.Append(result, fmt.Errorf("batches need transactions of at least one byte (batch size %d, transaction size %d)", c.BatchSize, c.TransactionSize))
	}
	return result.ErrorOrNil()
}

// PrimaryOptions translates the settings into the options of a primary.
func (c *Config) PrimaryOptions() primary.Options {
	return primary.Options{
		DagState: []dagstate.OptionFunc{
			dagstate.WithMaxProposalWait(c.MaxProposalWait),
			dagstate.WithCheckDelay(c.CheckDelay),
		},
		Synchronizer: []synchronizer.OptionFunc{},
		Waiter: []waiter.OptionFunc{
			waiter.WithCapacity(c.WaiterCapacity),
		},
		Core: []core.OptionFunc{
			core.WithGCDepth(c.GCDepth),
		},
		Producer: []producer.OptionFunc{
			producer.WithMaxHeaderDigests(c.MaxHeaderDigests),
		},
		BlockWaiter: []blockwaiter.OptionFunc{
			blockwaiter.WithBatchTimeout(c.BatchTimeout),
		},
	}
}
