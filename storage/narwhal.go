package storage

import (
	"github.com/dagbft/narwhal/model/narwhal"
)

// Certificates stores certificates by their digest.
type Certificates interface {
	// Store persists a certificate. Storing the same certificate twice is a no-op.
	Store(certificate *narwhal.Certificate) error

	// StoreAll persists all certificates in one atomic batch.
	StoreAll(certificates []*narwhal.Certificate) error

	// ByID returns storage.ErrNotFound for unknown certificates.
	ByID(certificateID narwhal.Identifier) (*narwhal.Certificate, error)

	Exists(certificateID narwhal.Identifier) (bool, error)
}

// Headers stores headers by their id. Every header is also indexed by the
// digest of the certificate it can become and by author and round.
type Headers interface {
	Store(header *narwhal.Header) error

	// StoreAll persists all headers in one atomic batch.
	StoreAll(headers []*narwhal.Header) error

	ByID(headerID narwhal.Identifier) (*narwhal.Header, error)

	// ByCertificateID returns the header certified by the given certificate digest.
	ByCertificateID(certificateID narwhal.Identifier) (*narwhal.Header, error)

	// ExistsByCertificateID checks whether a header was stored whose
	// certificate has the given digest.
	ExistsByCertificateID(certificateID narwhal.Identifier) (bool, error)

	// ByAuthorAfterRound returns the headers of an author with a round strictly
	// above the given round, in ascending round order.
	ByAuthorAfterRound(author narwhal.AuthorityIndex, round narwhal.Round) ([]*narwhal.Header, error)
}

// Payloads records which batches are available at which worker of this node.
type Payloads interface {
	Store(batchID narwhal.Identifier, worker narwhal.WorkerID) error

	// Exists checks the (batch, worker) pair. A batch stored by a different
	// worker does not count.
	Exists(batchID narwhal.Identifier, worker narwhal.WorkerID) (bool, error)
}

// LastVote is the most recent vote this node cast for an origin.
type LastVote struct {
	Round    narwhal.Round
	HeaderID narwhal.Identifier
}

// VoteDigests remembers the last vote per origin to prevent equivocation.
type VoteDigests interface {
	Store(origin narwhal.AuthorityIndex, vote LastVote) error

	// ByOrigin returns storage.ErrNotFound if this node never voted for the origin.
	ByOrigin(origin narwhal.AuthorityIndex) (LastVote, error)
}

// Batches stores transaction batches on the worker side.
type Batches interface {
	Store(batchID narwhal.Identifier, batch *narwhal.Batch) error
	ByID(batchID narwhal.Identifier) (*narwhal.Batch, error)
}
