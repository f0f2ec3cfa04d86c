package loadgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/dbtest"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

func TestBatchMaker(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		stores := store.InitAll(metrics.NewNoopCollector(), db)
		digests := make(chan narwhal.OwnBatch)
		maker, err := NewBatchMaker(unittest.Logger(), 2, stores.Batches, stores.Payloads, digests,
			WithInterval(5*time.Millisecond), WithBatchShape(4, 16))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		signalerCtx := irrecoverable.NewMockSignalerContext(t, ctx)
		maker.Start(signalerCtx)
		unittest.RequireClosed(t, maker.Ready(), time.Second, "batch maker not ready")

		seen := make(map[narwhal.Identifier]struct{})
		for i := 0; i < 3; i++ {
			var own narwhal.OwnBatch
			select {
			case own = <-digests:
			case <-time.After(time.Second):
				t.Fatal("no batch sealed")
			}
			assert.Equal(t, narwhal.WorkerID(2), own.WorkerID)
			assert.NotZero(t, own.CreatedAt)
			seen[own.Digest] = struct{}{}

			batch, err := stores.Batches.ByID(own.Digest)
			require.NoError(t, err)
			require.Len(t, batch.Transactions, 4)
			assert.Len(t, batch.Transactions[0], 16)
			digest, err := batch.Digest()
			require.NoError(t, err)
			assert.Equal(t, own.Digest, digest)

			exists, err := stores.Payloads.Exists(own.Digest, 2)
			require.NoError(t, err)
			assert.True(t, exists)
		}
		assert.Len(t, seen, 3)

		// nobody reads digests anymore, stopping must not block
		cancel()
		unittest.RequireClosed(t, maker.Done(), time.Second, "batch maker did not stop")
	})
}

func TestNewBatchMaker_InvalidConfig(t *testing.T) {
	_, err := NewBatchMaker(unittest.Logger(), 0, nil, nil, nil, WithInterval(0))
	assert.True(t, narwhal.IsConfigurationError(err))

	_, err = NewBatchMaker(unittest.Logger(), 0, nil, nil, nil, WithBatchShape(1, 0))
	assert.True(t, narwhal.IsConfigurationError(err))
}
