// Package loadgen feeds primaries with synthetic batches, in place of workers
// ingesting client transactions.
package loadgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

type Config struct {
	// Interval between two sealed batches.
	Interval time.Duration
	// BatchSize is the number of transactions per batch.
	BatchSize int
	// TransactionSize is the size of a generated transaction in bytes.
	TransactionSize int
}

func DefaultConfig() Config {
	return Config{
		Interval:        50 * time.Millisecond,
		BatchSize:       100,
		TransactionSize: 512,
	}
}

type OptionFunc func(*Config)

func WithInterval(interval time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.Interval = interval
	}
}

func WithBatchShape(batchSize int, transactionSize int) OptionFunc {
	return func(cfg *Config) {
		cfg.BatchSize = batchSize
		cfg.TransactionSize = transactionSize
	}
}

// BatchMaker plays one worker of a node: it seals batches of random
// transactions at a fixed interval, stores them where the worker would and
// announces their digests to the primary of its node.
type BatchMaker struct {
	*component.ComponentManager
	log      zerolog.Logger
	id       narwhal.WorkerID
	batches  storage.Batches
	payloads storage.Payloads
	digests  chan<- narwhal.OwnBatch
	config   Config
}

func NewBatchMaker(
	log zerolog.Logger,
	id narwhal.WorkerID,
	batches storage.Batches,
	payloads storage.Payloads,
	digests chan<- narwhal.OwnBatch,
	opts ...OptionFunc,
) (*BatchMaker, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.Interval <= 0 || config.BatchSize < 1 || config.TransactionSize < 1 {
		return nil, narwhal.NewConfigurationErrorf("invalid batch maker config (interval %s, batch size %d, transaction size %d)",
			config.Interval, config.BatchSize, config.TransactionSize)
	}

	b := &BatchMaker{
		log:      log.With().Str("engine", "batch_maker").Uint32("worker", uint32(id)).Logger(),
		id:       id,
		batches:  batches,
		payloads: payloads,
		digests:  digests,
		config:   config,
	}
	b.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(b.loop).
		Build()
	return b, nil
}

func (b *BatchMaker) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		own, err := b.seal()
		if err != nil {
			ctx.Throw(err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case b.digests <- own:
		}
		b.log.Debug().Hex("batch_id", logging.ID(own.Digest)).Msg("batch sealed")
	}
}

// seal generates, stores and records one batch.
func (b *BatchMaker) seal() (narwhal.OwnBatch, error) {
	batch := &narwhal.Batch{Transactions: make([]narwhal.Transaction, 0, b.config.BatchSize)}
	for i := 0; i < b.config.BatchSize; i++ {
		tx := make(narwhal.Transaction, b.config.TransactionSize)
		_, err := rand.Read(tx)
		if err != nil {
			return narwhal.OwnBatch{}, fmt.Errorf("could not generate transaction: %w", err)
		}
		batch.Transactions = append(batch.Transactions, tx)
	}

	digest, err := batch.Digest()
	if err != nil {
		return narwhal.OwnBatch{}, err
	}
	err = b.batches.Store(digest, batch)
	if err != nil {
		return narwhal.OwnBatch{}, fmt.Errorf("could not store batch %x: %w", digest, err)
	}
	err = b.payloads.Store(digest, b.id)
	if err != nil {
		return narwhal.OwnBatch{}, fmt.Errorf("could not record batch %x: %w", digest, err)
	}
	return narwhal.OwnBatch{
		Digest:    digest,
		WorkerID:  b.id,
		CreatedAt: narwhal.TimestampMs(time.Now().UnixMilli()),
	}, nil
}
