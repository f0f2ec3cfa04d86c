package dbtest

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v2"

	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/bops"
	"github.com/dagbft/narwhal/storage/operation/pops"
	"github.com/dagbft/narwhal/utils/unittest"
)

// RunWithDB runs the test once against each storage backend.
func RunWithDB(t *testing.T, fn func(t *testing.T, db storage.DB)) {
	t.Run("BadgerStorage", func(t *testing.T) {
		unittest.RunWithBadgerDB(t, func(db *badger.DB) {
			fn(t, bops.ToDB(db))
		})
	})
	t.Run("PebbleStorage", func(t *testing.T) {
		unittest.RunWithPebbleDB(t, func(db *pebble.DB) {
			fn(t, pops.ToDB(db))
		})
	})
}
