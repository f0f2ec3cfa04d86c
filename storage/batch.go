package storage

import (
	"io"
)

// Reader reads from a key value store. Returned values are only valid until
// the closer is closed.
type Reader interface {
	// Get returns storage.ErrNotFound if the key is absent.
	Get(key []byte) (value []byte, closer io.Closer, err error)

	// NewIter iterates over keys in [startPrefix, endPrefix], both inclusive
	// as prefixes.
	NewIter(startPrefix, endPrefix []byte) (Iterator, error)
}

// Iterator walks keys in ascending order.
type Iterator interface {
	First() bool
	Valid() bool
	Next()
	// Key is only valid until the next call to Next.
	Key() []byte
	Value(fn func(val []byte) error) error
	Close() error
}

// Writer buffers writes of a batch.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// ReaderBatchWriter gives access to a write batch and a reader of the committed
// state. Writes are not visible to the reader before the batch commits.
type ReaderBatchWriter interface {
	GlobalReader() Reader
	Writer() Writer

	// AddCallback registers a function to call once the batch committed or
	// failed. Caches use it to only cache committed values.
	AddCallback(func(error))
}

// DB is the backend neutral database. Batches are committed atomically and
// durably.
type DB interface {
	Reader() Reader
	WithReaderBatchWriter(fn func(ReaderBatchWriter) error) error
	io.Closer
}

// OnlyWriter adapts a writer-only function to a batch function.
func OnlyWriter(fn func(Writer) error) func(ReaderBatchWriter) error {
	return func(rw ReaderBatchWriter) error {
		return fn(rw.Writer())
	}
}
