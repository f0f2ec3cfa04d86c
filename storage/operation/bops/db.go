package bops

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/dagbft/narwhal/storage"
)

// DB adapts a badger database to storage.DB.
type DB struct {
	db *badger.DB
}

var _ storage.DB = (*DB)(nil)

func ToDB(db *badger.DB) *DB {
	return &DB{db: db}
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
