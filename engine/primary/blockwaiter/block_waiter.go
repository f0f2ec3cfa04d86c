package blockwaiter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/trace"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// PayloadSynchronizer makes the payload of certificates available at the
// workers of this node.
type PayloadSynchronizer interface {
	SynchronizeBlockPayload(ctx context.Context, certificates []*narwhal.Certificate) map[narwhal.Identifier]error
}

// BatchMessage is one batch of a block.
type BatchMessage struct {
	ID    narwhal.Identifier
	Batch *narwhal.Batch
}

// Block is a certificate together with the batches of its payload, sorted by
// batch digest.
type Block struct {
	ID      narwhal.Identifier
	Batches []BatchMessage
}

// BlockResult holds either the block or a BlockError.
type BlockResult struct {
	Block *Block
	Err   error
}

// BlockWaiter reconstructs blocks for certificate digests: it synchronizes
// the payload of every certificate with the workers of this node and fetches
// the batches from them. A block is returned complete or not at all.
//
// Identical requests in flight at the same time are served by one
// reconstruction.
type BlockWaiter struct {
	log          zerolog.Logger
	metrics      module.PrimaryMetrics
	tracer       module.Tracer
	committee    *narwhal.Committee
	me           narwhal.AuthorityIndex
	certificates storage.Certificates
	sync         PayloadSynchronizer
	client       network.WorkerClient
	config       Config
	requests     singleflight.Group
}

func New(
	log zerolog.Logger,
	collector module.PrimaryMetrics,
	tracer module.Tracer,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	certificates storage.Certificates,
	sync PayloadSynchronizer,
	client network.WorkerClient,
	opts ...OptionFunc,
) (*BlockWaiter, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.FetchWorkers < 1 || config.BatchTimeout <= 0 || config.RequestTimeout <= 0 {
		return nil, narwhal.NewConfigurationErrorf("invalid block waiter config (fetch workers %d, batch timeout %s, request timeout %s)",
			config.FetchWorkers, config.BatchTimeout, config.RequestTimeout)
	}
	return &BlockWaiter{
		log:          log.With().Str("engine", "block_waiter").Logger(),
		metrics:      collector,
		tracer:       tracer,
		committee:    committee,
		me:           me,
		certificates: certificates,
		sync:         sync,
		client:       client,
		config:       config,
	}, nil
}

// GetBlock reconstructs a single block.
// Expected errors during normal operations:
//   - BlockError wrapping ErrBlockNotFound, ErrBatchError or ErrBatchTimeout
//   - the error of ctx if it ends before the block is reconstructed
func (b *BlockWaiter) GetBlock(ctx context.Context, blockID narwhal.Identifier) (*Block, error) {
	result := b.GetBlocks(ctx, []narwhal.Identifier{blockID})[0]
	return result.Block, result.Err
}

// GetBlocks reconstructs the blocks of the given certificate digests. The
// results are in the order of the digests. Requests that share their set of
// digests with one in flight wait for its results.
//
// The reconstruction is bounded by RequestTimeout only. A caller whose ctx
// ends stops waiting with the error of ctx, without cancelling the work for
// the others.
func (b *BlockWaiter) GetBlocks(ctx context.Context, blockIDs []narwhal.Identifier) []BlockResult {
	key, unique := requestKey(blockIDs)
	done := b.requests.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.RequestTimeout)
		defer cancel()
		return b.getBlocks(shared, unique), nil
	})

	var byID map[narwhal.Identifier]BlockResult
	select {
	case result := <-done:
		byID = result.Val.(map[narwhal.Identifier]BlockResult)
	case <-ctx.Done():
		byID = make(map[narwhal.Identifier]BlockResult, len(unique))
		for _, id := range unique {
			byID[id] = BlockResult{Err: fmt.Errorf("stopped waiting for block %x: %w", id, ctx.Err())}
		}
	}

	results := make([]BlockResult, 0, len(blockIDs))
	for _, id := range blockIDs {
		results = append(results, byID[id])
	}
	return results
}

// requestKey identifies a request by its sorted distinct digests.
func requestKey(blockIDs []narwhal.Identifier) (string, narwhal.IdentifierList) {
	unique := narwhal.IdentifierList(blockIDs).Canonical()
	var key bytes.Buffer
	for _, id := range unique {
		key.Write(id[:])
	}
	return key.String(), unique
}

func (b *BlockWaiter) getBlocks(ctx context.Context, blockIDs narwhal.IdentifierList) map[narwhal.Identifier]BlockResult {
	span, ctx := b.tracer.StartSpanFromContext(ctx, trace.BlockWaiterGetBlocks)
	defer span.End()
	span.SetAttributes(attribute.Int("blocks", len(blockIDs)))
	started := time.Now()

	var lock sync.Mutex
	results := make(map[narwhal.Identifier]BlockResult, len(blockIDs))
	set := func(id narwhal.Identifier, block *Block, err error) {
		lock.Lock()
		defer lock.Unlock()
		results[id] = BlockResult{Block: block, Err: err}
		b.metrics.BlockRequest(outcome(err), time.Since(started))
	}

	found := make([]*narwhal.Certificate, 0, len(blockIDs))
	for _, id := range blockIDs {
		cert, err := b.certificates.ByID(id)
		if errors.Is(err, storage.ErrNotFound) {
			set(id, nil, newBlockError(id, ErrBlockNotFound, nil))
			continue
		}
		if err != nil {
			// storage failures are not a property of the block, surface them as is
			set(id, nil, fmt.Errorf("could not look up certificate %x: %w", id, err))
			continue
		}
		found = append(found, cert)
	}
	if len(found) == 0 {
		return results
	}

	synced := b.sync.SynchronizeBlockPayload(ctx, found)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.FetchWorkers)
	for _, cert := range found {
		cert := cert
		id := cert.ID()
		if err, ok := synced[id]; !ok || err != nil {
			if !ok {
				err = fmt.Errorf("payload not synchronized")
			}
			set(id, nil, newBlockError(id, ErrBatchError, err))
			continue
		}
		group.Go(func() error {
			block, err := b.fetchBlock(ctx, cert)
			if err != nil {
				b.log.Debug().Err(err).Hex("block_id", logging.ID(id)).Msg("could not reconstruct block")
				set(id, nil, err)
				return nil
			}
			set(id, block, nil)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// fetchBlock requests every batch of the payload from the workers of this
// node. Any failed batch fails the whole block.
func (b *BlockWaiter) fetchBlock(ctx context.Context, cert *narwhal.Certificate) (*Block, error) {
	id := cert.ID()
	span, ctx := b.tracer.StartSpanFromContext(ctx, trace.BlockWaiterFetchBatches)
	defer span.End()
	span.SetAttributes(attribute.Int("batches", len(cert.Header.Payload)))

	workers := make(map[narwhal.Identifier]narwhal.WorkerInfo, len(cert.Header.Payload))
	for digest, entry := range cert.Header.Payload {
		worker, err := b.committee.Worker(b.me, entry.WorkerID)
		if err != nil {
			return nil, newBlockError(id, ErrBatchError, err)
		}
		workers[digest] = worker
	}

	var lock sync.Mutex
	batches := make([]BatchMessage, 0, len(workers))
	group, ctx := errgroup.WithContext(ctx)
	for digest, worker := range workers {
		digest, worker := digest, worker
		group.Go(func() error {
			batch, err := b.fetchBatch(ctx, worker, digest)
			if errors.Is(err, context.DeadlineExceeded) {
				return newBlockError(id, ErrBatchTimeout, fmt.Errorf("batch %x: %w", digest, err))
			}
			if err != nil {
				return newBlockError(id, ErrBatchError, fmt.Errorf("batch %x: %w", digest, err))
			}
			lock.Lock()
			batches = append(batches, BatchMessage{ID: digest, Batch: batch})
			lock.Unlock()
			return nil
		})
	}
	err := group.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].ID.Compare(batches[j].ID) < 0
	})
	return &Block{ID: id, Batches: batches}, nil
}

// fetchBatch requests one batch, retrying until BatchTimeout elapses.
func (b *BlockWaiter) fetchBatch(ctx context.Context, worker narwhal.WorkerInfo, digest narwhal.Identifier) (*narwhal.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BatchTimeout)
	defer cancel()

	backoff, err := retry.NewConstant(b.config.RetryInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid retry interval: %w", err)
	}

	var batch *narwhal.Batch
	err = retry.Do(ctx, retry.WithMaxRetries(b.config.MaxRetries, backoff), func(ctx context.Context) error {
		received, err := b.client.RequestBatch(ctx, worker, digest)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		if received == nil {
			return retry.RetryableError(storage.ErrNotFound)
		}
		actual, err := received.Digest()
		if err != nil {
			return fmt.Errorf("could not compute digest of received batch: %w", err)
		}
		if actual != digest {
			return retry.RetryableError(fmt.Errorf("worker returned batch %x", actual))
		}
		batch = received
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return batch, nil
}
