package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/network/channels"
	"github.com/dagbft/narwhal/storage"
)

type processorEntry struct {
	processor network.MessageProcessor
}

// Network is the view of one authority on the hub. It implements the network
// interfaces the primary depends on.
type Network struct {
	hub          *Hub
	me           narwhal.AuthorityIndex
	log          zerolog.Logger
	certificates storage.Certificates
	batches      storage.Batches
	payloads     storage.Payloads

	lock       sync.RWMutex
	processors map[channels.Channel]processorEntry
}

var (
	_ network.Network            = (*Network)(nil)
	_ network.WorkerClient       = (*Network)(nil)
	_ network.CertificateFetcher = (*Network)(nil)
)

func (n *Network) Register(channel channels.Channel, processor network.MessageProcessor) (network.Conduit, error) {
	if !channels.IsValidChannel(channel) {
		return nil, fmt.Errorf("unknown channel %s", channel)
	}

	n.lock.Lock()
	defer n.lock.Unlock()
	if _, ok := n.processors[channel]; ok {
		return nil, fmt.Errorf("a processor is already registered on channel %s", channel)
	}
	n.processors[channel] = processorEntry{processor: processor}
	return &Conduit{net: n, channel: channel}, nil
}

func (n *Network) processor(channel channels.Channel) (network.MessageProcessor, bool) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	entry, ok := n.processors[channel]
	return entry.processor, ok
}

// RequestBatch reads the batch from the store of the worker's authority.
func (n *Network) RequestBatch(ctx context.Context, worker narwhal.WorkerInfo, batchID narwhal.Identifier) (*narwhal.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	peer, ok := n.hub.worker(worker.WorkerAddress)
	if !ok {
		return nil, fmt.Errorf("worker at %s: %w", worker.WorkerAddress, network.ErrUnknownPeer)
	}
	batch, err := peer.batches.ByID(batchID)
	if err != nil {
		return nil, fmt.Errorf("could not get batch %x from worker at %s: %w", batchID, worker.WorkerAddress, err)
	}
	copied, err := n.hub.copy(batch)
	if err != nil {
		return nil, err
	}
	return copied.(*narwhal.Batch), nil
}

// SynchronizeBatches copies the missing batches from the peer's stores into
// this authority's stores and records them as available payload.
func (n *Network) SynchronizeBatches(ctx context.Context, from narwhal.AuthorityIndex, missing map[narwhal.Identifier]narwhal.WorkerID) error {
	peer, ok := n.hub.network(from)
	if !ok {
		return fmt.Errorf("authority %d: %w", from, network.ErrUnknownPeer)
	}
	for batchID, workerID := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := peer.batches.ByID(batchID)
		if err != nil {
			return fmt.Errorf("could not get batch %x from authority %d: %w", batchID, from, err)
		}
		err = n.batches.Store(batchID, batch)
		if err != nil {
			return fmt.Errorf("could not store batch %x: %w", batchID, err)
		}
		err = n.payloads.Store(batchID, workerID)
		if err != nil {
			return fmt.Errorf("could not record payload %x: %w", batchID, err)
		}
	}
	return nil
}

// FetchCertificates returns the requested certificates the peer has stored.
func (n *Network) FetchCertificates(ctx context.Context, from narwhal.AuthorityIndex, certificateIDs []narwhal.Identifier) ([]*narwhal.Certificate, error) {
	peer, ok := n.hub.network(from)
	if !ok {
		return nil, fmt.Errorf("authority %d: %w", from, network.ErrUnknownPeer)
	}
	certs := make([]*narwhal.Certificate, 0, len(certificateIDs))
	for _, id := range certificateIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cert, err := peer.certificates.ByID(id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not get certificate %x from authority %d: %w", id, from, err)
		}
		copied, err := n.hub.copy(cert)
		if err != nil {
			return nil, err
		}
		certs = append(certs, copied.(*narwhal.Certificate))
	}
	return certs, nil
}

// Conduit sends messages of one channel through the hub.
type Conduit struct {
	net     *Network
	channel channels.Channel
}

var _ network.Conduit = (*Conduit)(nil)

func (c *Conduit) Publish(event interface{}, targetIDs ...narwhal.AuthorityIndex) error {
	for _, target := range targetIDs {
		err := c.net.hub.deliver(c.channel, c.net.me, target, event)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Conduit) Unicast(event interface{}, targetID narwhal.AuthorityIndex) error {
	return c.net.hub.deliver(c.channel, c.net.me, targetID, event)
}
