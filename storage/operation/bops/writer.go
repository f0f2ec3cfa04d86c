package bops

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

// ReaderBatchWriter buffers writes in a badger write batch. Reads go to the
// committed state of the database.
type ReaderBatchWriter struct {
	dbReader
	batch *badger.WriteBatch

	callbacks operation.Callbacks
}

var _ storage.ReaderBatchWriter = (*ReaderBatchWriter)(nil)
var _ storage.Writer = (*ReaderBatchWriter)(nil)

func NewReaderBatchWriter(db *badger.DB) *ReaderBatchWriter {
	return &ReaderBatchWriter{
		dbReader: dbReader{db: db},
		batch:    db.NewWriteBatch(),
	}
}

func (b *ReaderBatchWriter) GlobalReader() storage.Reader {
	return b.dbReader
}

func (b *ReaderBatchWriter) Writer() storage.Writer {
	return b
}

func (b *ReaderBatchWriter) AddCallback(callback func(error)) {
	b.callbacks.AddCallback(callback)
}

// Commit flushes the batch and notifies the callbacks with the result.
func (b *ReaderBatchWriter) Commit() error {
	err := b.batch.Flush()
	b.callbacks.NotifyCallbacks(err)
	return err
}

func (b *ReaderBatchWriter) Set(key, value []byte) error {
	return b.batch.Set(key, value)
}

func (b *ReaderBatchWriter) Delete(key []byte) error {
	return b.batch.Delete(key)
}

// WithReaderBatchWriter runs fn against a fresh batch and commits it if fn succeeds.
func WithReaderBatchWriter(db *badger.DB, fn func(storage.ReaderBatchWriter) error) error {
	batch := NewReaderBatchWriter(db)

	err := fn(batch)
	if err != nil {
		// fn may hold locks that are released by a callback
		batch.batch.Cancel()
		batch.callbacks.NotifyCallbacks(err)
		return err
	}

	return batch.Commit()
}
