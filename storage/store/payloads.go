package store

import (
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

type payloadKey struct {
	batchID narwhal.Identifier
	worker  narwhal.WorkerID
}

// Payloads records the batches our workers hold. Only positive lookups are cached.
type Payloads struct {
	db    storage.DB
	cache *Cache[payloadKey, struct{}]
}

var _ storage.Payloads = (*Payloads)(nil)

func NewPayloads(collector module.CacheMetrics, db storage.DB, cacheSize uint) *Payloads {
	store := func(rw storage.ReaderBatchWriter, key payloadKey, _ struct{}) error {
		return operation.InsertPayload(rw.Writer(), key.batchID, key.worker)
	}
	return &Payloads{
		db: db,
		cache: newCache(collector, metrics.ResourcePayload,
			withLimit[payloadKey, struct{}](cacheSize),
			withStore(store)),
	}
}

func (p *Payloads) Store(batchID narwhal.Identifier, worker narwhal.WorkerID) error {
	return p.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		return p.cache.PutTx(rw, payloadKey{batchID: batchID, worker: worker}, struct{}{})
	})
}

func (p *Payloads) Exists(batchID narwhal.Identifier, worker narwhal.WorkerID) (bool, error) {
	key := payloadKey{batchID: batchID, worker: worker}
	if p.cache.IsCached(key) {
		return true, nil
	}
	exists, err := operation.PayloadExists(p.db.Reader(), batchID, worker)
	if err != nil {
		return false, err
	}
	if exists {
		p.cache.Insert(key, struct{}{})
	}
	return exists, nil
}
