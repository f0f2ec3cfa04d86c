package synchronizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// BlockSynchronizer makes the payload of certified headers available at the
// local workers before a block is reconstructed.
type BlockSynchronizer struct {
	log      zerolog.Logger
	payloads storage.Payloads
	client   network.WorkerClient
	config   Config
}

func NewBlockSynchronizer(log zerolog.Logger, payloads storage.Payloads, client network.WorkerClient, opts ...OptionFunc) (*BlockSynchronizer, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.LookupWorkers < 1 {
		return nil, narwhal.NewConfigurationErrorf("block synchronizer needs at least one lookup worker, got %d", config.LookupWorkers)
	}
	return &BlockSynchronizer{
		log:      log.With().Str("component", "block_synchronizer").Logger(),
		payloads: payloads,
		client:   client,
		config:   config,
	}, nil
}

// SynchronizeBlockPayload synchronizes the payload of all certificates. The
// result holds one entry per certificate id: nil if the payload is fully
// available locally, the failure otherwise.
func (b *BlockSynchronizer) SynchronizeBlockPayload(ctx context.Context, certificates []*narwhal.Certificate) map[narwhal.Identifier]error {
	var lock sync.Mutex
	results := make(map[narwhal.Identifier]error, len(certificates))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.LookupWorkers)
	for _, cert := range certificates {
		cert := cert
		group.Go(func() error {
			err := b.synchronize(ctx, cert)
			if err != nil {
				b.log.Debug().Err(err).
					Hex("certificate_id", logging.ID(cert.ID())).
					Msg("could not synchronize block payload")
			}
			lock.Lock()
			results[cert.ID()] = err
			lock.Unlock()
			// one failed block must not cancel the others
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (b *BlockSynchronizer) synchronize(ctx context.Context, cert *narwhal.Certificate) error {
	missing, err := b.missing(cert.Header)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	err = b.client.SynchronizeBatches(ctx, cert.Origin(), missing)
	if err != nil {
		return fmt.Errorf("could not synchronize %d batches from authority %d: %w", len(missing), cert.Origin(), err)
	}

	missing, err = b.missing(cert.Header)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d batches still missing after synchronization", len(missing))
	}
	return nil
}

func (b *BlockSynchronizer) missing(header *narwhal.Header) (map[narwhal.Identifier]narwhal.WorkerID, error) {
	missing := make(map[narwhal.Identifier]narwhal.WorkerID)
	for digest, entry := range header.Payload {
		exists, err := b.payloads.Exists(digest, entry.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("could not check payload %x: %w", digest, err)
		}
		if !exists {
			missing[digest] = entry.WorkerID
		}
	}
	return missing, nil
}
