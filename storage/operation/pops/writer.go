package pops

import (
	"github.com/cockroachdb/pebble"

	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

// ReaderBatchWriter buffers writes in a pebble batch. Reads go to the
// committed state of the database.
type ReaderBatchWriter struct {
	dbReader
	batch *pebble.Batch

	callbacks operation.Callbacks
}

var _ storage.ReaderBatchWriter = (*ReaderBatchWriter)(nil)
var _ storage.Writer = (*ReaderBatchWriter)(nil)

func NewReaderBatchWriter(db *pebble.DB) *ReaderBatchWriter {
	return &ReaderBatchWriter{
		dbReader: dbReader{db: db},
		batch:    db.NewBatch(),
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

// Commit syncs the batch to disk and notifies the callbacks with the result.
func (b *ReaderBatchWriter) Commit() error {
	err := b.batch.Commit(pebble.Sync)
	b.callbacks.NotifyCallbacks(err)
	return err
}

func (b *ReaderBatchWriter) Set(key, value []byte) error {
	return b.batch.Set(key, value, nil)
}

func (b *ReaderBatchWriter) Delete(key []byte) error {
	return b.batch.Delete(key, nil)
}

// WithReaderBatchWriter runs fn against a fresh batch and commits it if fn succeeds.
func WithReaderBatchWriter(db *pebble.DB, fn func(storage.ReaderBatchWriter) error) error {
	batch := NewReaderBatchWriter(db)
	defer batch.batch.Close()

	err := fn(batch)
	if err != nil {
		// fn may hold locks that are released by a callback
		batch.callbacks.NotifyCallbacks(err)
		return err
	}

	return batch.Commit()
}
