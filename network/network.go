package network

import (
	"context"
	"errors"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/network/channels"
)

// ErrUnknownPeer is returned when a request targets an authority or worker
// that cannot be reached.
var ErrUnknownPeer = errors.New("unknown peer")

// Network allows engines to register on a channel. The returned conduit sends
// messages to the engines registered on the same channel at other authorities.
type Network interface {
	// Register subscribes the processor to the channel. On a single
	// authority, only one processor can be registered per channel.
	Register(channel channels.Channel, processor MessageProcessor) (Conduit, error)
}

// MessageProcessor processes inbound messages.
type MessageProcessor interface {
	// Process handles a message from the given authority. Implementations
	// must not block on long running work.
	Process(channel channels.Channel, originID narwhal.AuthorityIndex, message interface{}) error
}

// Conduit sends messages on the channel it was registered for.
type Conduit interface {
	// Publish sends the event to the given authorities. Delivery is
	// attempted, not guaranteed.
	Publish(event interface{}, targetIDs ...narwhal.AuthorityIndex) error

	// Unicast sends the event to a single authority.
	Unicast(event interface{}, targetID narwhal.AuthorityIndex) error
}

// HeaderBroadcaster sends this node's headers to the committee.
type HeaderBroadcaster interface {
	BroadcastHeader(header *narwhal.Header) error
}

// WorkerClient reaches the workers of this node and of its peers.
type WorkerClient interface {
	// RequestBatch fetches a batch from the given worker. A batch the worker
	// does not have is reported as storage.ErrNotFound.
	RequestBatch(ctx context.Context, worker narwhal.WorkerInfo, batchID narwhal.Identifier) (*narwhal.Batch, error)

	// SynchronizeBatches instructs the workers of this node to fetch the
	// missing batches from the workers of the given authority and to record
	// them in the payload store.
	SynchronizeBatches(ctx context.Context, from narwhal.AuthorityIndex, missing map[narwhal.Identifier]narwhal.WorkerID) error
}

// CertificateFetcher requests certificates from a peer.
type CertificateFetcher interface {
	// FetchCertificates returns the certificates the peer knows of among the
	// requested ones.
	FetchCertificates(ctx context.Context, from narwhal.AuthorityIndex, certificateIDs []narwhal.Identifier) ([]*narwhal.Certificate, error)
}
