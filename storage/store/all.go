package store

import (
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/storage"
)

const defaultCacheSize = 1000

// All groups the stores of one node.
type All struct {
	Certificates *Certificates
	Headers      *Headers
	Payloads     *Payloads
	VoteDigests  *VoteDigests
	Batches      *Batches
}

func InitAll(metrics module.CacheMetrics, db storage.DB) *All {
	return &All{
		Certificates: NewCertificates(metrics, db, defaultCacheSize),
		Headers:      NewHeaders(metrics, db, defaultCacheSize),
		Payloads:     NewPayloads(metrics, db, defaultCacheSize*10),
		VoteDigests:  NewVoteDigests(metrics, db),
		Batches:      NewBatches(metrics, db, defaultCacheSize),
	}
}
