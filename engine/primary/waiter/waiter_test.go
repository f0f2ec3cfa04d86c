package waiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/engine/primary/waiter"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/module/metrics"
	netmock "github.com/dagbft/narwhal/network/mock"
	"github.com/dagbft/narwhal/storage/operation/bops"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

// consumer plays the core: it stores resubmitted certificates.
type consumer struct {
	t            *testing.T
	certificates *store.Certificates
	headers      chan *narwhal.Header
	resubmitted  chan *narwhal.Certificate
}

func newConsumer(t *testing.T, certificates *store.Certificates) *consumer {
	return &consumer{
		t:            t,
		certificates: certificates,
		headers:      make(chan *narwhal.Header, 10),
		resubmitted:  make(chan *narwhal.Certificate, 10),
	}
}

func (c *consumer) ResubmitHeader(header *narwhal.Header) {
	c.headers <- header
}

func (c *consumer) ResubmitCertificate(certificate *narwhal.Certificate) {
	require.NoError(c.t, c.certificates.Store(certificate))
	c.resubmitted <- certificate
}

type startable interface {
	Start(irrecoverable.SignalerContext)
	Ready() <-chan struct{}
	Done() <-chan struct{}
}

func start(t *testing.T, component startable) func() {
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	component.Start(ctx)
	unittest.RequireClosed(t, component.Ready(), time.Second, "component not ready")
	return func() {
		cancel()
		unittest.RequireClosed(t, component.Done(), time.Second, "component did not stop")
	}
}

func fastRetries() waiter.OptionFunc {
	return waiter.WithRetries(10*time.Millisecond, 5)
}

func withStores(t *testing.T, f func(stores *store.All)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		f(store.InitAll(metrics.NewNoopCollector(), bops.ToDB(db)))
	})
}

func TestHeaderWaiter_SyncBatches(t *testing.T) {
	withStores(t, func(stores *store.All) {
		committee := unittest.CommitteeFixture(t, 4)
		client := netmock.NewWorkerClient(t)
		w, err := waiter.NewHeaderWaiter(unittest.Logger(), committee.Committee, client, netmock.NewCertificateFetcher(t),
			stores.Payloads, stores.Certificates, fastRetries())
		require.NoError(t, err)
		c := newConsumer(t, stores.Certificates)
		w.WithConsumer(c)
		defer start(t, w)()

		header := committee.HeaderFixture(t, 1, 1, committee.GenesisIDs(), unittest.PayloadFixture(2))
		missing := make(map[narwhal.Identifier]narwhal.WorkerID)
		for digest, entry := range header.Payload {
			missing[digest] = entry.WorkerID
		}
		client.On("SynchronizeBatches", mock.Anything, narwhal.AuthorityIndex(1), missing).
			Run(func(args mock.Arguments) {
				for digest, workerID := range missing {
					require.NoError(t, stores.Payloads.Store(digest, workerID))
				}
			}).
			Return(nil).Once()

		require.True(t, w.SyncBatches(missing, header))
		select {
		case resubmitted := <-c.headers:
			assert.Equal(t, header.ID, resubmitted.ID)
		case <-time.After(time.Second):
			t.Fatal("header not resubmitted")
		}
		require.Eventually(t, func() bool { return w.Pending() == 0 }, time.Second, 10*time.Millisecond)
	})
}

func TestHeaderWaiter_SyncParents(t *testing.T) {
	withStores(t, func(stores *store.All) {
		committee := unittest.CommitteeFixture(t, 4)
		fetcher := netmock.NewCertificateFetcher(t)
		w, err := waiter.NewHeaderWaiter(unittest.Logger(), committee.Committee, netmock.NewWorkerClient(t), fetcher,
			stores.Payloads, stores.Certificates, fastRetries())
		require.NoError(t, err)
		c := newConsumer(t, stores.Certificates)
		w.WithConsumer(c)
		defer start(t, w)()

		round1 := committee.CertificatesForRound(t, 1, committee.GenesisIDs())
		header := committee.HeaderFixture(t, 2, 2, unittest.CertificateIDs(round1), nil)
		missing := unittest.CertificateIDs(round1[1:])
		fetcher.On("FetchCertificates", mock.Anything, narwhal.AuthorityIndex(2), missing).Return(round1[1:], nil).Once()
		require.NoError(t, stores.Certificates.Store(round1[0]))

		require.True(t, w.SyncParents(missing, header))
		select {
		case resubmitted := <-c.headers:
			assert.Equal(t, header.ID, resubmitted.ID)
		case <-time.After(time.Second):
			t.Fatal("header not resubmitted")
		}
		assert.Len(t, c.resubmitted, 3, "fetched parents go to the consumer")
	})
}

func TestHeaderWaiter_GivesUp(t *testing.T) {
	withStores(t, func(stores *store.All) {
		committee := unittest.CommitteeFixture(t, 4)
		client := netmock.NewWorkerClient(t)
		w, err := waiter.NewHeaderWaiter(unittest.Logger(), committee.Committee, client, netmock.NewCertificateFetcher(t),
			stores.Payloads, stores.Certificates, fastRetries())
		require.NoError(t, err)
		c := newConsumer(t, stores.Certificates)
		w.WithConsumer(c)
		defer start(t, w)()

		header := committee.HeaderFixture(t, 3, 1, committee.GenesisIDs(), nil)
		missing := map[narwhal.Identifier]narwhal.WorkerID{header.PayloadDigests()[0]: 0}
		client.On("SynchronizeBatches", mock.Anything, narwhal.AuthorityIndex(3), missing).
			Return(errors.New("worker unreachable")).Once()

		require.True(t, w.SyncBatches(missing, header))
		require.Eventually(t, func() bool { return w.Pending() == 0 }, time.Second, 10*time.Millisecond)
		assert.Len(t, c.headers, 0)
	})
}

// TestHeaderWaiter_Capacity checks that a full waiter drops new requests but
// still accepts a header that is already parked.
func TestHeaderWaiter_Capacity(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	w, err := waiter.NewHeaderWaiter(unittest.Logger(), committee.Committee, nil, nil, nil, nil, waiter.WithCapacity(1))
	require.NoError(t, err)

	first := committee.HeaderFixture(t, 1, 1, committee.GenesisIDs(), nil)
	second := committee.HeaderFixture(t, 2, 1, committee.GenesisIDs(), nil)
	assert.True(t, w.SyncParents(unittest.IdentifierListFixture(1), first))
	assert.True(t, w.SyncParents(unittest.IdentifierListFixture(1), first))
	assert.False(t, w.SyncParents(unittest.IdentifierListFixture(1), second))
	assert.Equal(t, 1, w.Pending())
}

func TestCertificateWaiter(t *testing.T) {
	withStores(t, func(stores *store.All) {
		committee := unittest.CommitteeFixture(t, 4)
		fetcher := netmock.NewCertificateFetcher(t)
		w, err := waiter.NewCertificateWaiter(unittest.Logger(), committee.Committee, fetcher, stores.Certificates, fastRetries())
		require.NoError(t, err)
		c := newConsumer(t, stores.Certificates)
		w.WithConsumer(c)
		defer start(t, w)()

		rounds := committee.CertificateRounds(t, 2)
		child := rounds[1][0]
		fetcher.On("FetchCertificates", mock.Anything, child.Origin(), mock.Anything).
			Return(rounds[0], nil).Once()

		require.True(t, w.SyncCertificate(child))
		received := make(map[narwhal.Identifier]struct{})
		timeout := time.After(time.Second)
		for len(received) < 5 {
			select {
			case cert := <-c.resubmitted:
				received[cert.ID()] = struct{}{}
			case <-timeout:
				t.Fatalf("received %d of 5 certificates", len(received))
			}
		}
		assert.Contains(t, received, child.ID())
	})
}

func TestNewWaiter_InvalidConfig(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	_, err := waiter.NewCertificateWaiter(unittest.Logger(), committee.Committee, nil, nil, waiter.WithWorkers(0))
	assert.True(t, narwhal.IsConfigurationError(err))
	_, err = waiter.NewHeaderWaiter(unittest.Logger(), committee.Committee, nil, nil, nil, nil, waiter.WithRetries(0, 1))
	assert.True(t, narwhal.IsConfigurationError(err))
}

func TestNewWaiter_InvalidFetchRate(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	_, err := waiter.NewCertificateWaiter(unittest.Logger(), committee.Committee, nil, nil, waiter.WithFetchRate(0, 1))
	assert.True(t, narwhal.IsConfigurationError(err))
}
