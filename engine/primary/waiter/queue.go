package waiter

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/dagbft/narwhal/engine"
	"github.com/dagbft/narwhal/engine/common/fifoqueue"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
)

// Consumer takes back headers and certificates once their dependencies are
// available locally.
type Consumer interface {
	ResubmitHeader(header *narwhal.Header)
	ResubmitCertificate(certificate *narwhal.Certificate)
}

// errStillMissing marks a store check that has to be repeated.
var errStillMissing = errors.New("dependencies still missing")

// parked is one message waiting for its dependencies.
type parked[T any] struct {
	id   narwhal.Identifier
	item T
}

// parkingQueue holds at most one request per message id, up to a capacity.
// A worker pool resolves requests in the background.
type parkingQueue[T any] struct {
	log      zerolog.Logger
	config   Config
	queue    *fifoqueue.FifoQueue[parked[T]]
	notifier engine.Notifier
	limiter  *peerLimiter

	lock    sync.Mutex
	pending map[narwhal.Identifier]struct{}
}

func newParkingQueue[T any](log zerolog.Logger, config Config) (*parkingQueue[T], error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}
	queue, err := fifoqueue.NewFifoQueue[parked[T]](fifoqueue.WithCapacity(config.Capacity))
	if err != nil {
		return nil, err
	}
	return &parkingQueue[T]{
		log:      log,
		config:   config,
		queue:    queue,
		notifier: engine.NewNotifier(),
		limiter:  newPeerLimiter(config.FetchRate, config.FetchBurst),
		pending:  make(map[narwhal.Identifier]struct{}),
	}, nil
}

// park queues the request without blocking. A message that is already parked
// is not queued again and counts as accepted. Returns false if the queue is
// full.
func (q *parkingQueue[T]) park(id narwhal.Identifier, item T) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	if _, ok := q.pending[id]; ok {
		return true
	}
	if len(q.pending) >= q.config.Capacity {
		return false
	}
	if !q.queue.Push(parked[T]{id: id, item: item}) {
		return false
	}
	q.pending[id] = struct{}{}
	q.notifier.Notify()
	return true
}

func (q *parkingQueue[T]) release(id narwhal.Identifier) {
	q.lock.Lock()
	delete(q.pending, id)
	q.lock.Unlock()
}

// Len returns the number of parked messages.
func (q *parkingQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.pending)
}

// resolveFunc resolves one parked request. It calls release before handing the
// message back, so that the message can be parked again right away.
type resolveFunc[T any] func(ctx irrecoverable.SignalerContext, item T, release func())

// worker returns the component worker that hands parked requests to the pool.
func (q *parkingQueue[T]) worker(resolve resolveFunc[T]) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		pool := workerpool.New(q.config.Workers)
		defer pool.StopWait()
		ready()

		for {
			select {
			case <-ctx.Done():
				return
			case <-q.notifier.Channel():
			}
			for {
				request, ok := q.queue.Pop()
				if !ok {
					break
				}
				release := func() { q.release(request.id) }
				pool.Submit(func() {
					defer release()
					resolve(ctx, request.item, release)
				})
			}
		}
	}
}

// awaitStores checks the local stores until check reports everything
// available or the retries are used up. It returns false in the latter case
// and when ctx is cancelled.
func (q *parkingQueue[T]) awaitStores(ctx context.Context, check func() (bool, error)) (bool, error) {
	backoff, err := retry.NewConstant(q.config.RetryInterval)
	if err != nil {
		return false, err
	}
	err = retry.Do(ctx, retry.WithMaxRetries(q.config.MaxRetries, backoff), func(ctx context.Context) error {
		available, err := check()
		if err != nil {
			return err
		}
		if !available {
			return retry.RetryableError(errStillMissing)
		}
		return nil
	})
	if errors.Is(err, errStillMissing) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
