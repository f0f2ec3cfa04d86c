package pops

import (
	"errors"
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/dagbft/narwhal/storage"
)

type dbReader struct {
	db *pebble.DB
}

var _ storage.Reader = dbReader{}

func (r dbReader) Get(key []byte) ([]byte, io.Closer, error) {
	value, closer, err := r.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return value, closer, nil
}

func (r dbReader) NewIter(startPrefix, endPrefix []byte) (storage.Iterator, error) {
	it, err := r.db.NewIter(&pebble.IterOptions{
		LowerBound: startPrefix,
		UpperBound: prefixUpperBound(endPrefix),
	})
	if err != nil {
		return nil, err
	}
	return &iterator{it: it}, nil
}

type iterator struct {
	it *pebble.Iterator
}

var _ storage.Iterator = (*iterator)(nil)

func (i *iterator) First() bool {
	return i.it.First()
}

func (i *iterator) Valid() bool {
	return i.it.Valid()
}

func (i *iterator) Next() {
	i.it.Next()
}

func (i *iterator) Key() []byte {
	return i.it.Key()
}

func (i *iterator) Value(fn func(val []byte) error) error {
	return fn(i.it.Value())
}

func (i *iterator) Close() error {
	return i.it.Close()
}

// prefixUpperBound returns the smallest key above every key with the prefix,
// or nil if no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
