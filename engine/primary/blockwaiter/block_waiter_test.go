package blockwaiter

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dagbft/narwhal/engine/primary/synchronizer"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/module/trace"
	netmock "github.com/dagbft/narwhal/network/mock"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/bops"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

type BlockWaiterSuite struct {
	suite.Suite

	dir       string
	db        *badger.DB
	stores    *store.All
	committee *unittest.Committee
	client    *netmock.WorkerClient
	worker    narwhal.WorkerInfo
	// batches holds every batch a worker of this node can serve
	batches map[narwhal.Identifier]*narwhal.Batch
}

func TestBlockWaiter(t *testing.T) {
	suite.Run(t, new(BlockWaiterSuite))
}

func (s *BlockWaiterSuite) SetupTest() {
	s.dir = unittest.TempDir(s.T())
	s.db = unittest.BadgerDB(s.T(), s.dir)
	s.stores = store.InitAll(metrics.NewNoopCollector(), bops.ToDB(s.db))
	s.committee = unittest.CommitteeFixture(s.T(), 4)
	s.client = netmock.NewWorkerClient(s.T())
	s.batches = make(map[narwhal.Identifier]*narwhal.Batch)

	var err error
	s.worker, err = s.committee.Worker(0, 0)
	s.Require().NoError(err)
}

func (s *BlockWaiterSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
	s.Require().NoError(os.RemoveAll(s.dir))
}

func (s *BlockWaiterSuite) waiter(opts ...OptionFunc) *BlockWaiter {
	sync, err := synchronizer.NewBlockSynchronizer(unittest.Logger(), s.stores.Payloads, s.client)
	s.Require().NoError(err)
	w, err := New(unittest.Logger(), metrics.NewNoopCollector(), trace.NewNoopTracer(), s.committee.Committee, 0,
		s.stores.Certificates, sync, s.client, opts...)
	s.Require().NoError(err)
	return w
}

// block stores a certificate of authority 1 referencing n new batches. The
// payload is recorded as available locally if synced is set.
func (s *BlockWaiterSuite) block(n int, synced bool) *narwhal.Certificate {
	payload := make(map[narwhal.Identifier]narwhal.PayloadEntry, n)
	for i := 0; i < n; i++ {
		batch := unittest.BatchFixture(3)
		digest, err := batch.Digest()
		s.Require().NoError(err)
		s.batches[digest] = batch
		payload[digest] = narwhal.PayloadEntry{WorkerID: 0}
		if synced {
			s.Require().NoError(s.stores.Payloads.Store(digest, 0))
		}
	}
	header := s.committee.HeaderFixture(s.T(), 1, 1, s.committee.GenesisIDs(), payload)
	cert := s.committee.CertificateFixture(s.T(), header)
	s.Require().NoError(s.stores.Certificates.Store(cert))
	return cert
}

func (s *BlockWaiterSuite) serveBatches() {
	s.client.On("RequestBatch", mock.Anything, s.worker, mock.Anything).
		Return(func(_ context.Context, _ narwhal.WorkerInfo, digest narwhal.Identifier) (*narwhal.Batch, error) {
			batch, ok := s.batches[digest]
			if !ok {
				return nil, storage.ErrNotFound
			}
			return batch, nil
		})
}

func (s *BlockWaiterSuite) requireBlock(cert *narwhal.Certificate, result BlockResult) {
	s.Require().NoError(result.Err)
	s.Require().NotNil(result.Block)
	s.Assert().Equal(cert.ID(), result.Block.ID)
	s.Require().Len(result.Block.Batches, len(cert.Header.Payload))
	for i, message := range result.Block.Batches {
		s.Assert().Contains(cert.Header.Payload, message.ID)
		s.Assert().Equal(s.batches[message.ID], message.Batch)
		if i > 0 {
			s.Assert().Negative(result.Block.Batches[i-1].ID.Compare(message.ID), "batches not sorted by digest")
		}
	}
}

func (s *BlockWaiterSuite) TestGetBlocks() {
	first := s.block(5, true)
	second := s.block(3, true)
	s.serveBatches()

	results := s.waiter().GetBlocks(context.Background(), []narwhal.Identifier{second.ID(), first.ID()})
	s.Require().Len(results, 2)
	s.requireBlock(second, results[0])
	s.requireBlock(first, results[1])
}

func (s *BlockWaiterSuite) TestGetBlocks_NotFound() {
	first := s.block(2, true)
	second := s.block(2, true)
	unknown := unittest.IdentifierFixture()
	s.serveBatches()

	results := s.waiter().GetBlocks(context.Background(), []narwhal.Identifier{first.ID(), unknown, second.ID(), first.ID()})
	s.Require().Len(results, 4)
	s.requireBlock(first, results[0])
	s.Assert().Nil(results[1].Block)
	s.Assert().ErrorIs(results[1].Err, ErrBlockNotFound)
	s.Assert().True(IsBlockError(results[1].Err))
	s.requireBlock(second, results[2])
	s.requireBlock(first, results[3])
}

func (s *BlockWaiterSuite) TestGetBlock_PayloadSynchronized() {
	cert := s.block(4, false)
	s.client.On("SynchronizeBatches", mock.Anything, narwhal.AuthorityIndex(1), mock.Anything).
		Run(func(args mock.Arguments) {
			for digest, worker := range args.Get(2).(map[narwhal.Identifier]narwhal.WorkerID) {
				s.Require().NoError(s.stores.Payloads.Store(digest, worker))
			}
		}).
		Return(nil).Once()
	s.serveBatches()

	block, err := s.waiter().GetBlock(context.Background(), cert.ID())
	s.requireBlock(cert, BlockResult{Block: block, Err: err})
}

func (s *BlockWaiterSuite) TestGetBlock_PayloadSyncFails() {
	cert := s.block(2, false)
	s.client.On("SynchronizeBatches", mock.Anything, narwhal.AuthorityIndex(1), mock.Anything).
		Return(errors.New("unreachable")).Once()

	block, err := s.waiter().GetBlock(context.Background(), cert.ID())
	s.Assert().Nil(block)
	s.Assert().ErrorIs(err, ErrBatchError)
}

// TestGetBlock_MissingBatch checks that a block with one unavailable batch is
// not returned partially.
func (s *BlockWaiterSuite) TestGetBlock_MissingBatch() {
	cert := s.block(4, true)
	for digest := range cert.Header.Payload {
		delete(s.batches, digest)
		break
	}
	s.serveBatches()

	block, err := s.waiter(WithRetries(time.Millisecond, 2)).GetBlock(context.Background(), cert.ID())
	s.Assert().Nil(block)
	s.Assert().ErrorIs(err, ErrBatchError)
	s.Assert().True(IsBlockError(err))
}

func (s *BlockWaiterSuite) TestGetBlock_WrongBatch() {
	cert := s.block(1, true)
	s.client.On("RequestBatch", mock.Anything, s.worker, mock.Anything).
		Return(unittest.BatchFixture(1), nil)

	block, err := s.waiter(WithRetries(time.Millisecond, 1)).GetBlock(context.Background(), cert.ID())
	s.Assert().Nil(block)
	s.Assert().ErrorIs(err, ErrBatchError)
}

func (s *BlockWaiterSuite) TestGetBlock_Timeout() {
	cert := s.block(2, true)
	s.client.On("RequestBatch", mock.Anything, s.worker, mock.Anything).
		Return(func(ctx context.Context, _ narwhal.WorkerInfo, _ narwhal.Identifier) (*narwhal.Batch, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	block, err := s.waiter(WithBatchTimeout(50*time.Millisecond)).GetBlock(context.Background(), cert.ID())
	s.Assert().Nil(block)
	s.Assert().ErrorIs(err, ErrBatchTimeout)
}

// TestGetBlock_FirstCallerCancels checks that a caller joining an identical
// request in flight gets the block even when the caller that started the
// request gives up.
func (s *BlockWaiterSuite) TestGetBlock_FirstCallerCancels() {
	cert := s.block(1, true)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.client.On("RequestBatch", mock.Anything, s.worker, mock.Anything).
		Return(func(ctx context.Context, _ narwhal.WorkerInfo, digest narwhal.Identifier) (*narwhal.Batch, error) {
			once.Do(func() { close(started) })
			select {
			case <-release:
				return s.batches[digest], nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
	w := s.waiter(WithBatchTimeout(5 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := w.GetBlock(ctx, cert.ID())
		first <- err
	}()
	unittest.RequireClosed(s.T(), started, time.Second, "reconstruction did not start")

	joined := make(chan BlockResult, 1)
	go func() {
		joined <- w.GetBlocks(context.Background(), []narwhal.Identifier{cert.ID()})[0]
	}()
	// let the second caller join before the first gives up
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-first:
		s.Assert().ErrorIs(err, context.Canceled)
		s.Assert().False(IsBlockError(err))
	case <-time.After(time.Second):
		s.Require().FailNow("first caller did not return after cancelling")
	}

	close(release)
	select {
	case result := <-joined:
		s.requireBlock(cert, result)
	case <-time.After(5 * time.Second):
		s.Require().FailNow("second caller did not get the block")
	}
	s.client.AssertNumberOfCalls(s.T(), "RequestBatch", 1)
}

func TestRequestKey(t *testing.T) {
	a, b, c := unittest.IdentifierFixture(), unittest.IdentifierFixture(), unittest.IdentifierFixture()

	key, unique := requestKey([]narwhal.Identifier{c, a, b, a})
	other, _ := requestKey([]narwhal.Identifier{b, c, a})
	assert.Equal(t, key, other)
	assert.Len(t, unique, 3)
	assert.True(t, unique.IsCanonical())

	different, _ := requestKey([]narwhal.Identifier{a, b})
	assert.NotEqual(t, key, different)
}

func TestNew_InvalidConfig(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	_, err := New(unittest.Logger(), metrics.NewNoopCollector(), trace.NewNoopTracer(), committee.Committee, 0,
		nil, nil, nil, WithFetchWorkers(0))
	require.True(t, narwhal.IsConfigurationError(err))
}
