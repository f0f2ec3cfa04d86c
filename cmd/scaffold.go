package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/bops"
	"github.com/dagbft/narwhal/storage/operation/pops"
)

// InitLogger builds the process logger with UTC timestamps at the given level.
func InitLogger(level string) (zerolog.Logger, error) {
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.Level(lvl), nil
}

// OpenDB opens the key-value store of one authority in dir. The returned
// function closes it. A directory written by another engine is refused.
func OpenDB(engine string, dir string) (storage.DB, func() error, error) {
	err := storage.CheckEngine(dir, engine)
	if err != nil {
		return nil, nil, err
	}
	err = os.MkdirAll(filepath.Clean(dir), 0o750)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create data directory %s: %w", dir, err)
	}

	switch engine {
	case storage.EngineBadger:
		db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open badger store: %w", err)
		}
		return bops.ToDB(db), db.Close, nil
	case storage.EnginePebble:
		cache := pebble.NewCache(64 << 20)
		defer cache.Unref()
		db, err := pebble.Open(dir, &pebble.Options{Cache: cache})
		if err != nil {
			return nil, nil, fmt.Errorf("could not open pebble store: %w", err)
		}
		return pops.ToDB(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage engine %q", engine)
	}
}
