package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/dbtest"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

func TestCertificateStoreRetrieve(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		committee := unittest.CommitteeFixture(t, 4)
		certs := committee.CertificatesForRound(t, 1, committee.GenesisIDs())

		s := store.NewCertificates(metrics.NewNoopCollector(), db, 10)

		_, err := s.ByID(certs[0].ID())
		require.ErrorIs(t, err, storage.ErrNotFound)
		exists, err := s.Exists(certs[0].ID())
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, s.Store(certs[0]))
		require.NoError(t, s.StoreAll(certs[1:]))
		// storing again is a no-op
		require.NoError(t, s.Store(certs[0]))

		for _, cert := range certs {
			exists, err := s.Exists(cert.ID())
			require.NoError(t, err)
			assert.True(t, exists)
		}

		// a fresh store reads from the database rather than the cache
		fresh := store.NewCertificates(metrics.NewNoopCollector(), db, 10)
		for _, cert := range certs {
			actual, err := fresh.ByID(cert.ID())
			require.NoError(t, err)
			assert.Equal(t, cert, actual)
			require.NoError(t, actual.Verify(committee.Committee))
		}
	})
}

func TestBatchStore(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		s := store.NewBatches(metrics.NewNoopCollector(), db, 10)
		batch := unittest.BatchFixture(5)
		batchID, err := batch.Digest()
		require.NoError(t, err)

		_, err = s.ByID(batchID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.Store(batchID, batch))
		actual, err := store.NewBatches(metrics.NewNoopCollector(), db, 10).ByID(batchID)
		require.NoError(t, err)
		assert.Equal(t, batch, actual)
	})
}
