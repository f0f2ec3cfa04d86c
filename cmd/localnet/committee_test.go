package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommittee(t *testing.T) {
	committee, signers, err := newCommittee(5)
	require.NoError(t, err)
	require.Equal(t, 5, committee.Size())
	require.Len(t, signers, 5)
	assert.Equal(t, uint64(4), committee.QuorumThreshold())

	for _, index := range committee.Indices() {
		authority := committee.Authority(index)
		assert.Equal(t, authority.PublicKey, signers[index].PublicKey())
		_, err := committee.Worker(index, 0)
		assert.NoError(t, err)
	}
}
