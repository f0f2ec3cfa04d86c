package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dagbft/narwhal/consensus/dagstate"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/module/trace"
	netmock "github.com/dagbft/narwhal/network/mock"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/dbtest"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

// stubState authorizes the queued proposals, one per call, starting with the
// call number given by from.
type stubState struct {
	mu        sync.Mutex
	calls     int
	from      int
	proposals []*dagstate.Proposal
	delay     time.Duration
	acceptErr error
	accepted  []*narwhal.Header
	flushed   int
}

func (s *stubState) TryPropose() dagstate.ProposeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls < s.from || len(s.proposals) == 0 {
		return dagstate.ProposeResult{NextCheckDelay: s.delay}
	}
	proposal := s.proposals[0]
	s.proposals = s.proposals[1:]
	return dagstate.ProposeResult{Proposal: proposal, NextCheckDelay: s.delay}
}

func (s *stubState) AcceptProposal(header *narwhal.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptErr != nil {
		return s.acceptErr
	}
	s.accepted = append(s.accepted, header)
	return nil
}

func (s *stubState) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

type harness struct {
	committee   *unittest.Committee
	broadcaster *netmock.HeaderBroadcaster
	headers     chan *narwhal.Header
	digests     chan narwhal.OwnBatch
	accepted    chan struct{}
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		committee:   unittest.CommitteeFixture(t, 4),
		broadcaster: netmock.NewHeaderBroadcaster(t),
		headers:     make(chan *narwhal.Header, 10),
		digests:     make(chan narwhal.OwnBatch, 10),
		accepted:    make(chan struct{}, 1),
	}
	return h
}

func (h *harness) expectBroadcasts(times int) {
	h.broadcaster.On("BroadcastHeader", mock.Anything).
		Run(func(args mock.Arguments) { h.headers <- args.Get(0).(*narwhal.Header) }).
		Return(nil).Times(times)
}

func (h *harness) producer(t *testing.T, state State, opts ...OptionFunc) *Producer {
	p, err := New(unittest.Logger(), metrics.NewNoopCollector(), trace.NewNoopTracer(), h.committee.Committee, 0,
		h.committee.Signers[0], state, h.broadcaster, h.digests, h.accepted, opts...)
	require.NoError(t, err)
	return p
}

func (h *harness) nextHeader(t *testing.T) *narwhal.Header {
	select {
	case header := <-h.headers:
		return header
	case <-time.After(time.Second):
		t.Fatal("no header broadcast")
		return nil
	}
}

func ownBatches(n int) []narwhal.OwnBatch {
	batches := make([]narwhal.OwnBatch, 0, n)
	for i := 0; i < n; i++ {
		batches = append(batches, narwhal.OwnBatch{Digest: unittest.IdentifierFixture(), WorkerID: 0, CreatedAt: narwhal.TimestampMs(i)})
	}
	return batches
}

func start(t *testing.T, p *Producer) func() {
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	p.Start(ctx)
	unittest.RequireClosed(t, p.Ready(), time.Second, "producer not ready")
	return func() {
		cancel()
		unittest.RequireClosed(t, p.Done(), time.Second, "producer did not stop")
	}
}

// TestProducer_Genesis checks that a fresh node proposes round 1 on the
// genesis certificates and persists the header before it is broadcast.
func TestProducer_Genesis(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		h := newHarness(t)
		collector := metrics.NewNoopCollector()
		headers := store.NewHeaders(collector, db, 100)
		state, err := dagstate.New(unittest.Logger(), collector, h.committee.Committee, 0, headers, store.NewCertificates(collector, db, 100))
		require.NoError(t, err)

		batches := ownBatches(3)
		for _, batch := range batches {
			h.digests <- batch
		}
		h.broadcaster.On("BroadcastHeader", mock.Anything).
			Run(func(args mock.Arguments) {
				header := args.Get(0).(*narwhal.Header)
				stored, err := headers.ByID(header.ID)
				assert.NoError(t, err)
				assert.Equal(t, header.ID, stored.ID)
				h.headers <- header
			}).
			Return(nil).Once()

		stop := start(t, h.producer(t, state))
		header := h.nextHeader(t)
		stop()

		assert.Equal(t, narwhal.Round(1), header.Round)
		assert.Equal(t, narwhal.AuthorityIndex(0), header.Author)
		assert.ElementsMatch(t, h.committee.GenesisIDs(), header.Parents)
		require.Len(t, header.Payload, 3)
		for _, batch := range batches {
			assert.Contains(t, header.Payload, batch.Digest)
		}
		assert.NoError(t, header.Verify(h.committee.Committee))
		assert.True(t, state.Contains(narwhal.MakeCertificateID(header.ID, header.Round, header.Author)))
	})
}

func TestProducer_PayloadLimit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t)
	state := &stubState{
		delay: 10 * time.Millisecond,
		proposals: []*dagstate.Proposal{
			{Round: 1, Ancestors: h.committee.GenesisIDs()},
			{Round: 2, Ancestors: h.committee.GenesisIDs()},
			{Round: 3, Ancestors: h.committee.GenesisIDs()},
		},
	}
	for _, batch := range ownBatches(5) {
		h.digests <- batch
	}
	h.expectBroadcasts(3)

	stop := start(t, h.producer(t, state, WithMaxHeaderDigests(2)))
	sizes := []int{len(h.nextHeader(t).Payload), len(h.nextHeader(t).Payload), len(h.nextHeader(t).Payload)}
	stop()

	assert.Equal(t, []int{2, 2, 1}, sizes)
	state.mu.Lock()
	defer state.mu.Unlock()
	assert.Len(t, state.accepted, 3)
	assert.Equal(t, 3, state.flushed)
}

// TestProducer_AcceptedTrigger checks that an acceptance notification makes
// the producer ask for a proposal without waiting for its timer.
func TestProducer_AcceptedTrigger(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t)
	state := &stubState{
		delay:     time.Hour,
		from:      2,
		proposals: []*dagstate.Proposal{{Round: 1, Ancestors: h.committee.GenesisIDs()}},
	}
	h.expectBroadcasts(1)

	stop := start(t, h.producer(t, state))
	require.Eventually(t, func() bool {
		state.mu.Lock()
		defer state.mu.Unlock()
		return state.calls == 1
	}, time.Second, 5*time.Millisecond)

	h.accepted <- struct{}{}
	header := h.nextHeader(t)
	stop()
	assert.Equal(t, narwhal.Round(1), header.Round)
}

// TestProducer_ClockBehindAncestors checks that the header timestamp never
// precedes the latest ancestor.
func TestProducer_ClockBehindAncestors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t)
	ahead := narwhal.TimestampMs(time.Now().Add(150 * time.Millisecond).UnixMilli())
	state := &stubState{
		delay:     time.Hour,
		proposals: []*dagstate.Proposal{{Round: 1, Ancestors: h.committee.GenesisIDs(), MaxAncestorTime: ahead}},
	}
	h.expectBroadcasts(1)

	stop := start(t, h.producer(t, state))
	header := h.nextHeader(t)
	stop()

	assert.GreaterOrEqual(t, header.CreatedAt, ahead)
	assert.GreaterOrEqual(t, time.Now().UnixMilli(), int64(ahead))
}

// TestProducer_AcceptFailure checks that failing to record an own header is
// fatal and nothing is broadcast.
func TestProducer_AcceptFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t)
	exception := errors.New("exception")
	state := &stubState{
		delay:     time.Hour,
		acceptErr: exception,
		proposals: []*dagstate.Proposal{{Round: 1, Ancestors: h.committee.GenesisIDs()}},
	}
	p := h.producer(t, state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalerCtx, errs := irrecoverable.WithSignaler(ctx)
	p.Start(signalerCtx)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, exception)
	case <-time.After(time.Second):
		t.Fatal("failure not thrown")
	}
	unittest.RequireClosed(t, p.Done(), time.Second, "producer did not stop")
}

func TestProducer_ClosedChannels(t *testing.T) {
	t.Run("digests", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		h := newHarness(t)
		p := h.producer(t, &stubState{delay: time.Hour})
		ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
		defer cancel()
		p.Start(ctx)

		close(h.digests)
		unittest.RequireClosed(t, p.Done(), time.Second, "producer did not stop")
	})

	t.Run("accepted", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		h := newHarness(t)
		p := h.producer(t, &stubState{delay: time.Hour})
		ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
		defer cancel()
		p.Start(ctx)

		close(h.accepted)
		unittest.RequireClosed(t, p.Done(), time.Second, "producer did not stop")
	})
}

func TestNew_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	_, err := New(unittest.Logger(), metrics.NewNoopCollector(), trace.NewNoopTracer(), h.committee.Committee, 0,
		h.committee.Signers[0], &stubState{}, h.broadcaster, h.digests, h.accepted, WithMaxHeaderDigests(0))
	assert.True(t, narwhal.IsConfigurationError(err))
}
