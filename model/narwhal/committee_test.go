package narwhal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/utils/unittest"
)

func TestThresholds(t *testing.T) {
	cases := []struct {
		total    narwhal.Stake
		quorum   narwhal.Stake
		validity narwhal.Stake
	}{
		{total: 1, quorum: 1, validity: 1},
		{total: 3, quorum: 3, validity: 1},
		{total: 4, quorum: 3, validity: 2},
		{total: 7, quorum: 5, validity: 3},
		{total: 10, quorum: 7, validity: 4},
		{total: 45, quorum: 31, validity: 15},
		{total: 100, quorum: 67, validity: 34},
	}
	for _, c := range cases {
		assert.Equal(t, c.quorum, narwhal.QuorumThreshold(c.total), "quorum for total %d", c.total)
		assert.Equal(t, c.validity, narwhal.ValidityThreshold(c.total), "validity for total %d", c.total)
	}
}

func TestCommittee_Stake45(t *testing.T) {
	// stakes 1..9 sum to 45
	committee := unittest.CommitteeFixture(t, 9, unittest.WithStakes(1, 2, 3, 4, 5, 6, 7, 8, 9))

	assert.Equal(t, narwhal.Stake(45), committee.TotalStake())
	assert.Equal(t, narwhal.Stake(31), committee.QuorumThreshold())
	assert.Equal(t, narwhal.Stake(15), committee.ValidityThreshold())

	assert.False(t, committee.ReachedQuorum(30))
	assert.True(t, committee.ReachedQuorum(31))
	assert.False(t, committee.ReachedValidity(14))
	assert.True(t, committee.ReachedValidity(15))
}

func TestCommittee_Indices(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)

	assert.Equal(t, 4, committee.Size())
	assert.Equal(t, []narwhal.AuthorityIndex{0, 1, 2, 3}, committee.Indices())
	assert.Equal(t, []narwhal.AuthorityIndex{0, 1, 3}, committee.Others(2))

	_, ok := committee.ToAuthorityIndex(4)
	assert.False(t, ok)
	index, ok := committee.ToAuthorityIndex(3)
	require.True(t, ok)
	assert.Equal(t, narwhal.AuthorityIndex(3), index)

	assert.Panics(t, func() { committee.Stake(4) })
	assert.Panics(t, func() { committee.Authority(narwhal.AuthorityIndex(math.MaxUint16)) })

	_, err := committee.Worker(1, 7)
	assert.True(t, narwhal.IsUnknownWorkerError(err))
	_, err = committee.Worker(1, 0)
	assert.NoError(t, err)
}

func TestNewCommittee_Errors(t *testing.T) {
	key := unittest.KeyFixture(t, 1).PublicKey()
	other := unittest.KeyFixture(t, 2).PublicKey()

	t.Run("empty", func(t *testing.T) {
		_, err := narwhal.NewCommittee(0, nil)
		assert.True(t, narwhal.IsConfigurationError(err))
	})
	t.Run("duplicate key", func(t *testing.T) {
		_, err := narwhal.NewCommittee(0, []narwhal.Authority{
			{PublicKey: key, Stake: 1},
			{PublicKey: key, Stake: 1},
		})
		assert.True(t, narwhal.IsConfigurationError(err))
	})
	t.Run("zero total stake", func(t *testing.T) {
		_, err := narwhal.NewCommittee(0, []narwhal.Authority{
			{PublicKey: key, Stake: 0},
			{PublicKey: other, Stake: 0},
		})
		assert.True(t, narwhal.IsConfigurationError(err))
	})
	t.Run("stake overflow", func(t *testing.T) {
		_, err := narwhal.NewCommittee(0, []narwhal.Authority{
			{PublicKey: key, Stake: math.MaxUint64},
			{PublicKey: other, Stake: 1},
		})
		assert.True(t, narwhal.IsConfigurationError(err))
	})
}

// Every node derives the same indices regardless of the configured order.
func TestNewCommittee_OrderIndependent(t *testing.T) {
	fixture := unittest.CommitteeFixture(t, 5)
	reversed := make([]narwhal.Authority, 0, fixture.Size())
	for i := fixture.Size() - 1; i >= 0; i-- {
		reversed = append(reversed, fixture.Authority(narwhal.AuthorityIndex(i)))
	}
	committee, err := narwhal.NewCommittee(fixture.Epoch(), reversed)
	require.NoError(t, err)
	for _, index := range fixture.Indices() {
		assert.Equal(t, fixture.Authority(index).PublicKey, committee.Authority(index).PublicKey)
	}
}

func TestCommittee_Genesis(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)

	genesis := committee.Genesis()
	require.Len(t, genesis, 4)
	seen := make(map[narwhal.Identifier]struct{})
	for i, cert := range genesis {
		assert.Equal(t, narwhal.Round(0), cert.Round())
		assert.Equal(t, narwhal.AuthorityIndex(i), cert.Origin())
		assert.Empty(t, cert.Header.Payload)
		assert.Empty(t, cert.Header.Parents)
		assert.True(t, committee.IsGenesis(cert.ID()))
		require.NoError(t, cert.Verify(committee.Committee))
		seen[cert.ID()] = struct{}{}
	}
	assert.Len(t, seen, 4)
	assert.False(t, committee.IsGenesis(unittest.IdentifierFixture()))

	// genesis differs between epochs
	next := unittest.CommitteeFixture(t, 4, unittest.WithEpoch(1))
	assert.False(t, next.IsGenesis(genesis[0].ID()))
}
