package waiter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/engine/primary/synchronizer"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

type headerRequest struct {
	header  *narwhal.Header
	batches map[narwhal.Identifier]narwhal.WorkerID
	parents []narwhal.Identifier
}

// HeaderWaiter parks headers whose payload or parents are missing. It asks the
// header's author for them, waits until they are stored and resubmits the
// header to the consumer.
type HeaderWaiter struct {
	*component.ComponentManager
	log          zerolog.Logger
	committee    *narwhal.Committee
	client       network.WorkerClient
	fetcher      network.CertificateFetcher
	payloads     storage.Payloads
	certificates storage.Certificates
	queue        *parkingQueue[*headerRequest]
	consumer     Consumer
}

var _ synchronizer.HeaderWaiter = (*HeaderWaiter)(nil)

func NewHeaderWaiter(
	log zerolog.Logger,
	committee *narwhal.Committee,
	client network.WorkerClient,
	fetcher network.CertificateFetcher,
	payloads storage.Payloads,
	certificates storage.Certificates,
	opts ...OptionFunc,
) (*HeaderWaiter, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	log = log.With().Str("component", "header_waiter").Logger()
	queue, err := newParkingQueue[*headerRequest](log, config)
	if err != nil {
		return nil, fmt.Errorf("could not create header waiter queue: %w", err)
	}

	w := &HeaderWaiter{
		log:          log,
		committee:    committee,
		client:       client,
		fetcher:      fetcher,
		payloads:     payloads,
		certificates: certificates,
		queue:        queue,
	}
	w.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			if w.consumer == nil {
				ctx.Throw(fmt.Errorf("header waiter started without consumer"))
				return
			}
			queue.worker(w.resolve)(ctx, ready)
		}).
		Build()
	return w, nil
}

// WithConsumer sets the consumer of resolved headers. It must be called
// before the waiter is started.
func (w *HeaderWaiter) WithConsumer(consumer Consumer) {
	w.consumer = consumer
}

// SyncBatches parks the header until the missing batches are stored by the
// local workers.
func (w *HeaderWaiter) SyncBatches(missing map[narwhal.Identifier]narwhal.WorkerID, header *narwhal.Header) bool {
	return w.queue.park(header.ID, &headerRequest{header: header, batches: missing})
}

// SyncParents parks the header until the missing parent certificates are
// stored.
func (w *HeaderWaiter) SyncParents(missing []narwhal.Identifier, header *narwhal.Header) bool {
	return w.queue.park(header.ID, &headerRequest{header: header, parents: missing})
}

// Pending returns the number of parked headers.
func (w *HeaderWaiter) Pending() int {
	return w.queue.Len()
}

func (w *HeaderWaiter) resolve(ctx irrecoverable.SignalerContext, request *headerRequest, release func()) {
	header := request.header
	log := w.log.With().
		Hex("header_id", logging.ID(header.ID)).
		Uint16("author", uint16(header.Author)).
		Uint64("round", uint64(header.Round)).
		Logger()

	w.fetch(ctx, log, request)

	available, err := w.queue.awaitStores(ctx, func() (bool, error) {
		return w.available(request)
	})
	if err != nil {
		ctx.Throw(fmt.Errorf("could not check dependencies of header %x: %w", header.ID, err))
		return
	}
	if !available {
		log.Debug().Msg("dependencies of header did not arrive, giving up")
		return
	}
	log.Debug().Msg("dependencies of header available, resubmitting")
	release()
	w.consumer.ResubmitHeader(header)
}

// fetch requests the missing data from the header's author. Failures are
// logged only: the data may still arrive through other peers.
func (w *HeaderWaiter) fetch(ctx context.Context, log zerolog.Logger, request *headerRequest) {
	ctx, cancel := context.WithTimeout(ctx, w.queue.config.FetchTimeout)
	defer cancel()

	err := w.queue.limiter.Wait(ctx, request.header.Author)
	if err != nil {
		log.Debug().Err(err).Msg("request to author rate limited, skipping fetch")
		return
	}
	if len(request.batches) > 0 {
		err := w.client.SynchronizeBatches(ctx, request.header.Author, request.batches)
		if err != nil {
			log.Debug().Err(err).Int("batches", len(request.batches)).Msg("could not synchronize batches")
		}
	}
	if len(request.parents) > 0 {
		certs, err := w.fetcher.FetchCertificates(ctx, request.header.Author, request.parents)
		if err != nil {
			log.Debug().Err(err).Int("parents", len(request.parents)).Msg("could not fetch parent certificates")
		}
		for _, cert := range certs {
			w.consumer.ResubmitCertificate(cert)
		}
	}
}

func (w *HeaderWaiter) available(request *headerRequest) (bool, error) {
	for digest, workerID := range request.batches {
		exists, err := w.payloads.Exists(digest, workerID)
		if err != nil {
			return false, fmt.Errorf("could not check payload %x: %w", digest, err)
		}
		if !exists {
			return false, nil
		}
	}
	for _, parentID := range request.parents {
		if w.committee.IsGenesis(parentID) {
			continue
		}
		exists, err := w.certificates.Exists(parentID)
		if err != nil {
			return false, fmt.Errorf("could not check parent %x: %w", parentID, err)
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
