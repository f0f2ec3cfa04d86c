package bops

import (
	"bytes"
	"errors"
	"io"

	"github.com/dgraph-io/badger/v2"

	"github.com/dagbft/narwhal/storage"
)

type dbReader struct {
	db *badger.DB
}

var _ storage.Reader = dbReader{}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Get returns a copy of the value, badger values do not outlive their transaction.
func (r dbReader) Get(key []byte) ([]byte, io.Closer, error) {
	var value []byte
	err := r.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return value, noopCloser{}, nil
}

func (r dbReader) NewIter(startPrefix, endPrefix []byte) (storage.Iterator, error) {
	tx := r.db.NewTransaction(false)
	options := badger.DefaultIteratorOptions
	options.Prefix = commonPrefix(startPrefix, endPrefix)
	return &iterator{
		tx:          tx,
		it:          tx.NewIterator(options),
		startPrefix: startPrefix,
		endPrefix:   endPrefix,
	}, nil
}

type iterator struct {
	tx          *badger.Txn
	it          *badger.Iterator
	startPrefix []byte
	endPrefix   []byte
}

var _ storage.Iterator = (*iterator)(nil)

func (i *iterator) First() bool {
	i.it.Seek(i.startPrefix)
	return i.Valid()
}

// Valid stops at the first key whose prefix sorts after the end prefix.
func (i *iterator) Valid() bool {
	if !i.it.Valid() {
		return false
	}
	key := i.it.Item().Key()
	if len(key) > len(i.endPrefix) {
		key = key[:len(i.endPrefix)]
	}
	return bytes.Compare(key, i.endPrefix) <= 0
}

func (i *iterator) Next() {
	i.it.Next()
}

func (i *iterator) Key() []byte {
	return i.it.Item().Key()
}

func (i *iterator) Value(fn func(val []byte) error) error {
	return i.it.Item().Value(fn)
}

func (i *iterator) Close() error {
	i.it.Close()
	i.tx.Discard()
	return nil
}

func commonPrefix(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
