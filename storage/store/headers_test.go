package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation/dbtest"
	"github.com/dagbft/narwhal/storage/store"
	"github.com/dagbft/narwhal/utils/unittest"
)

func TestHeaderStoreRetrieve(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		committee := unittest.CommitteeFixture(t, 4)
		header := committee.HeaderFixture(t, 2, 1, committee.GenesisIDs(), unittest.PayloadFixture(4))
		certificateID := narwhal.MakeCertificateID(header.ID, header.Round, header.Author)

		s := store.NewHeaders(metrics.NewNoopCollector(), db, 10)

		exists, err := s.ExistsByCertificateID(certificateID)
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = s.ByCertificateID(certificateID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.Store(header))

		for _, headers := range []*store.Headers{s, store.NewHeaders(metrics.NewNoopCollector(), db, 10)} {
			actual, err := headers.ByID(header.ID)
			require.NoError(t, err)
			assert.Equal(t, header, actual)

			actual, err = headers.ByCertificateID(certificateID)
			require.NoError(t, err)
			assert.Equal(t, header, actual)

			exists, err := headers.ExistsByCertificateID(certificateID)
			require.NoError(t, err)
			assert.True(t, exists)
		}
	})
}

func TestHeaderStore_ByAuthorAfterRound(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		committee := unittest.CommitteeFixture(t, 4)
		s := store.NewHeaders(metrics.NewNoopCollector(), db, 10)

		var own []*narwhal.Header
		for round := narwhal.Round(1); round <= 5; round++ {
			header := committee.HeaderFixture(t, 1, round, nil, nil)
			own = append(own, header)
			// headers of neighbouring authorities must not leak into the range
			require.NoError(t, s.StoreAll([]*narwhal.Header{
				committee.HeaderFixture(t, 0, round, nil, nil),
				header,
				committee.HeaderFixture(t, 2, round, nil, nil),
			}))
		}

		headers, err := s.ByAuthorAfterRound(1, 2)
		require.NoError(t, err)
		assert.Equal(t, own[2:], headers)

		headers, err = s.ByAuthorAfterRound(1, 0)
		require.NoError(t, err)
		assert.Equal(t, own, headers)

		headers, err = s.ByAuthorAfterRound(3, 0)
		require.NoError(t, err)
		assert.Empty(t, headers)
	})
}

func TestPayloadsAndVoteDigests(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		all := store.InitAll(metrics.NewNoopCollector(), db)
		batchID := unittest.IdentifierFixture()

		exists, err := all.Payloads.Exists(batchID, 0)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, all.Payloads.Store(batchID, 0))
		exists, err = all.Payloads.Exists(batchID, 0)
		require.NoError(t, err)
		assert.True(t, exists)
		// the same batch at another worker is not available
		exists, err = all.Payloads.Exists(batchID, 1)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = all.VoteDigests.ByOrigin(3)
		require.ErrorIs(t, err, storage.ErrNotFound)

		first := storage.LastVote{Round: 4, HeaderID: unittest.IdentifierFixture()}
		second := storage.LastVote{Round: 5, HeaderID: unittest.IdentifierFixture()}
		require.NoError(t, all.VoteDigests.Store(3, first))
		require.NoError(t, all.VoteDigests.Store(3, second))

		actual, err := store.NewVoteDigests(metrics.NewNoopCollector(), db).ByOrigin(3)
		require.NoError(t, err)
		assert.Equal(t, second, actual)
	})
}
