package store

import (
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

type VoteDigests struct {
	db    storage.DB
	cache *Cache[narwhal.AuthorityIndex, storage.LastVote]
}

var _ storage.VoteDigests = (*VoteDigests)(nil)

func NewVoteDigests(collector module.CacheMetrics, db storage.DB) *VoteDigests {
	store := func(rw storage.ReaderBatchWriter, origin narwhal.AuthorityIndex, vote storage.LastVote) error {
		return operation.UpsertLastVote(rw.Writer(), origin, vote)
	}
	retrieve := func(r storage.Reader, origin narwhal.AuthorityIndex) (storage.LastVote, error) {
		var vote storage.LastVote
		err := operation.RetrieveLastVote(r, origin, &vote)
		return vote, err
	}
	return &VoteDigests{
		db: db,
		// one entry per authority
		cache: newCache(collector, metrics.ResourceLastVote,
			withLimit[narwhal.AuthorityIndex, storage.LastVote](narwhal.MaxCommitteeSize),
			withStore(store),
			withRetrieve(retrieve)),
	}
}

func (v *VoteDigests) Store(origin narwhal.AuthorityIndex, vote storage.LastVote) error {
	return v.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		return v.cache.PutTx(rw, origin, vote)
	})
}

// ByOrigin returns the last vote cast for the origin.
// Expected errors during normal operations:
//   - storage.ErrNotFound if this node never voted for a header of the origin.
func (v *VoteDigests) ByOrigin(origin narwhal.AuthorityIndex) (storage.LastVote, error) {
	return v.cache.Get(v.db.Reader(), origin)
}
