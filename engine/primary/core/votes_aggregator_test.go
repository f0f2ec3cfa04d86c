package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/utils/unittest"
)

// TestVotesAggregator_NineAuthorities walks through a committee with stakes
// 1 to 9: votes worth 22 do not certify the header, the vote of stake 9 that
// brings the total to 31 does.
func TestVotesAggregator_NineAuthorities(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 9, unittest.WithStakes(1, 2, 3, 4, 5, 6, 7, 8, 9))
	require.Equal(t, narwhal.Stake(31), committee.QuorumThreshold())

	header := committee.HeaderFixture(t, 8, 1, committee.GenesisIDs(), nil)
	aggregator := NewVotesAggregator(committee.Committee, header)

	// stakes 1+2+3+4+5+7 = 22
	for _, vote := range committee.Votes(t, header, 0, 1, 2, 3, 4, 6) {
		cert, err := aggregator.Append(vote)
		require.NoError(t, err)
		assert.Nil(t, cert)
	}

	cert, err := aggregator.Append(committee.Votes(t, header, 8)[0])
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.NoError(t, cert.Verify(committee.Committee))
	assert.Len(t, cert.Votes, 7)

	// later votes never produce a second certificate
	cert, err = aggregator.Append(committee.Votes(t, header, 7)[0])
	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestVotesAggregator_AuthorityReuse(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	header := committee.HeaderFixture(t, 0, 1, committee.GenesisIDs(), nil)
	aggregator := NewVotesAggregator(committee.Committee, header)

	vote := committee.Votes(t, header, 1)[0]
	_, err := aggregator.Append(vote)
	require.NoError(t, err)
	_, err = aggregator.Append(vote)
	assert.True(t, narwhal.IsAuthorityReuseError(err))

	other := committee.HeaderFixture(t, 0, 1, committee.GenesisIDs(), nil)
	_, err = aggregator.Append(committee.Votes(t, other, 2)[0])
	assert.Error(t, err)
	assert.False(t, narwhal.IsAuthorityReuseError(err))
}
