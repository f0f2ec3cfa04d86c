package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/engine/primary/core"
	"github.com/dagbft/narwhal/storage"
)

func flagSet(cfg *Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(flags)
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	flags := flagSet(&cfg)
	require.NoError(t, flags.Parse(nil))
	require.NoError(t, cfg.Load(flags))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "narwhal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("authorities: 7\ngc-depth: 12\nbatch-size: 3\n"), 0o600))

	t.Setenv("NARWHAL_GC_DEPTH", "20")
	t.Setenv("NARWHAL_DB_ENGINE", "pebble")

	cfg := DefaultConfig()
	flags := flagSet(&cfg)
	require.NoError(t, flags.Parse([]string{"--config", path, "--batch-size", "9", "-t", "5s"}))
	require.NoError(t, cfg.Load(flags))

	// file
	assert.Equal(t, 7, cfg.Authorities)
	// environment over file
	assert.Equal(t, uint64(20), cfg.GCDepth)
	assert.Equal(t, storage.EnginePebble, cfg.DBEngine)
	// command line over both
	assert.Equal(t, 9, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Duration)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv("NARWHAL_AUTHORITIES", "many")
		cfg := DefaultConfig()
		flags := flagSet(&cfg)
		require.NoError(t, flags.Parse(nil))
		assert.Error(t, cfg.Load(flags))
	})

	t.Run("missing config file", func(t *testing.T) {
		cfg := DefaultConfig()
		flags := flagSet(&cfg)
		require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}))
		assert.Error(t, cfg.Load(flags))
	})

	t.Run("validation collects every problem", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Authorities = 0
		cfg.DBEngine = "rocks"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one authority")
		assert.Contains(t, err.Error(), "rocks")
	})
}

func TestPrimaryOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCDepth = 3

	opts := cfg.PrimaryOptions()
	coreConfig := core.DefaultConfig()
	for _, apply := range opts.Core {
		apply(&coreConfig)
	}
	assert.Equal(t, uint64(3), coreConfig.GCDepth)
	assert.Len(t, opts.Producer, 1)
	assert.Len(t, opts.BlockWaiter, 1)
}
