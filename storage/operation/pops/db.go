package pops

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/dagbft/narwhal/storage"
)

// DB adapts a pebble database to storage.DB.
type DB struct {
	db *pebble.DB
}

var _ storage.DB = (*DB)(nil)

func ToDB(db *pebble.DB) *DB {
	return &DB{db: db}
}

// Open opens or creates a pebble database in dir.
func Open(dir string, cacheSize int64) (*pebble.DB, error) {
	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()
	db, err := pebble.Open(dir, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return db, nil
}

func (d *DB) Reader() storage.Reader {
	return dbReader{db: d.db}
}

func (d *DB) WithReaderBatchWriter(fn func(storage.ReaderBatchWriter) error) error {
	return WithReaderBatchWriter(d.db, fn)
}

func (d *DB) Close() error {
	return d.db.Close()
}
