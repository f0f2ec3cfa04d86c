package store

import (
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

type Batches struct {
	db    storage.DB
	cache *Cache[narwhal.Identifier, *narwhal.Batch]
}

var _ storage.Batches = (*Batches)(nil)

func NewBatches(collector module.CacheMetrics, db storage.DB, cacheSize uint) *Batches {
	store := func(rw storage.ReaderBatchWriter, batchID narwhal.Identifier, batch *narwhal.Batch) error {
		return operation.InsertBatch(rw.Writer(), batchID, batch)
	}
	retrieve := func(r storage.Reader, batchID narwhal.Identifier) (*narwhal.Batch, error) {
		var batch narwhal.Batch
		err := operation.RetrieveBatch(r, batchID, &batch)
		return &batch, err
	}
	return &Batches{
		db: db,
		cache: newCache(collector, metrics.ResourceBatch,
			withLimit[narwhal.Identifier, *narwhal.Batch](cacheSize),
			withStore(store),
			withRetrieve(retrieve)),
	}
}

func (b *Batches) Store(batchID narwhal.Identifier, batch *narwhal.Batch) error {
	return b.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		return b.cache.PutTx(rw, batchID, batch)
	})
}

func (b *Batches) ByID(batchID narwhal.Identifier) (*narwhal.Batch, error) {
	return b.cache.Get(b.db.Reader(), batchID)
}
