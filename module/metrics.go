package module

import (
	"time"
)

type CacheMetrics interface {
	// CacheEntries report the total number of cached items
	CacheEntries(resource string, entries uint)
	// CacheHit report the number of times the queried item is found in the cache
	CacheHit(resource string)
	// CacheNotFound records the number of times the queried item was not found in either cache or database.
	CacheNotFound(resource string)
	// CacheMiss report the number of times the queried item is not found in the cache, but found in the database.
	CacheMiss(resource string)
}

// PrimaryMetrics tracks the proposal and certification pipeline of a primary.
type PrimaryMetrics interface {
	// HeaderProposed reports a header built and broadcast by this node.
	HeaderProposed(round uint64, payloadSize int)
	// HeaderVoted reports a vote cast for a peer header.
	HeaderVoted()
	// CertificateCreated reports a certificate assembled from votes on our own header.
	CertificateCreated(round uint64)
	// CertificateAccepted reports a certificate stored and inserted into the DAG.
	CertificateAccepted(round uint64)
	// HeaderSuspended reports a header or certificate parked for missing dependencies.
	HeaderSuspended(reason string)
	// CurrentlySuspended reports the number of headers waiting in the DAG state.
	CurrentlySuspended(count int)
	// MessageRejected reports a message that failed verification.
	MessageRejected(kind string)
	// SyncRequestDropped reports a best-effort request dropped on a full queue.
	SyncRequestDropped(queue string)
	// ProposalDelayed reports how long the proposer slept to keep timestamps monotonic.
	ProposalDelayed(duration time.Duration)
	// BlockRequest reports the outcome of one block reconstruction.
	BlockRequest(outcome string, duration time.Duration)
}
