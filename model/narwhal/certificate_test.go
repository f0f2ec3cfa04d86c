package narwhal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/utils/unittest"
)

func TestCertificate_Verify(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	header := committee.HeaderFixture(t, 0, 1, committee.GenesisIDs(), nil)

	t.Run("quorum", func(t *testing.T) {
		cert := committee.CertificateFixture(t, header, 0, 1, 2)
		require.NoError(t, cert.Verify(committee.Committee))
		assert.Equal(t, narwhal.MakeCertificateID(header.ID, 1, 0), cert.ID())
	})
	t.Run("below quorum", func(t *testing.T) {
		cert := committee.CertificateFixture(t, header, 0, 1)
		err := cert.Verify(committee.Committee)
		assert.True(t, narwhal.IsQuorumNotReachedError(err))
	})
	t.Run("duplicate voter", func(t *testing.T) {
		votes := committee.Votes(t, header, 0, 1, 1)
		signatures := make([]narwhal.VoteSignature, 0, len(votes))
		for _, v := range votes {
			signatures = append(signatures, narwhal.VoteSignature{Author: v.Author, Signature: v.Signature})
		}
		_, err := narwhal.NewCertificate(committee.Committee, header, signatures)
		assert.True(t, narwhal.IsAuthorityReuseError(err))

		cert := &narwhal.Certificate{Header: header, Votes: signatures}
		err = cert.Verify(committee.Committee)
		assert.True(t, narwhal.IsAuthorityReuseError(err))
	})
	t.Run("invalid vote signature", func(t *testing.T) {
		cert := committee.CertificateFixture(t, header, 0, 1, 2)
		// a signature over a different header
		other := committee.HeaderFixture(t, 0, 1, committee.GenesisIDs(), nil)
		forged := committee.Votes(t, other, 3)[0]
		cert.Votes = append(cert.Votes, narwhal.VoteSignature{Author: 3, Signature: forged.Signature})
		err := cert.Verify(committee.Committee)
		assert.True(t, narwhal.IsInvalidSignatureError(err))
		assert.ErrorIs(t, err, crypto.ErrInvalidSignature)
	})
	t.Run("unknown voter", func(t *testing.T) {
		cert := committee.CertificateFixture(t, header, 0, 1, 2)
		cert.Votes = append(cert.Votes, narwhal.VoteSignature{Author: 11, Signature: cert.Votes[0].Signature})
		err := cert.Verify(committee.Committee)
		assert.True(t, narwhal.IsUnknownAuthorityError(err))
	})
	t.Run("forged genesis", func(t *testing.T) {
		genesis := committee.Genesis()[0]
		other := unittest.CommitteeFixture(t, 4, unittest.WithKeySeed(1), unittest.WithEpoch(0))
		// same epoch and author, so the certificate digest matches the other committee's genesis
		require.NoError(t, genesis.Verify(other.Committee))

		tampered := &narwhal.Certificate{Header: &narwhal.Header{
			Author:  genesis.Origin(),
			Epoch:   genesis.Epoch(),
			Payload: unittest.PayloadFixture(1),
		}}
		id, err := tampered.Header.Digest()
		require.NoError(t, err)
		tampered.Header.ID = id
		err = tampered.Verify(committee.Committee)
		assert.Error(t, err)
		assert.True(t, narwhal.IsVerificationError(err))
	})
}

// Adding a valid vote to a valid certificate keeps it valid.
func TestCertificate_MonotonicInVotes(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 7, unittest.WithStakes(1, 1, 1, 1, 1, 1, 1))
	header := committee.HeaderFixture(t, 3, 1, committee.GenesisIDs(), nil)

	voters := []narwhal.AuthorityIndex{0, 1, 2, 3}
	for _, extra := range []narwhal.AuthorityIndex{4, 5, 6} {
		voters = append(voters, extra)
		cert := committee.CertificateFixture(t, header, voters...)
		require.NoError(t, cert.Verify(committee.Committee), "with %d voters", len(voters))
	}
}

func TestVote_Verify(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 4)
	header := committee.HeaderFixture(t, 0, 1, committee.GenesisIDs(), nil)
	vote := committee.Votes(t, header, 2)[0]

	require.NoError(t, vote.Verify(committee.Committee))
	assert.Equal(t, narwhal.MakeCertificateID(header.ID, header.Round, header.Author), vote.Digest())

	vote.Author = 3
	assert.True(t, narwhal.IsInvalidSignatureError(vote.Verify(committee.Committee)))
}

// With stakes 1 to 9 the quorum is 31. Authority 8 (stake 9) proposes, voters
// worth 22 cannot certify its header, another 9 of stake can.
func TestCertificate_WeightedQuorum(t *testing.T) {
	committee := unittest.CommitteeFixture(t, 9, unittest.WithStakes(1, 2, 3, 4, 5, 6, 7, 8, 9))
	require.Equal(t, narwhal.Stake(31), committee.QuorumThreshold())

	header := committee.HeaderFixture(t, 8, 1, committee.GenesisIDs(), nil)
	require.NoError(t, header.Verify(committee.Committee))

	// 9 + 7 + 6
	cert := committee.CertificateFixture(t, header, 8, 6, 5)
	err := cert.Verify(committee.Committee)
	assert.True(t, narwhal.IsQuorumNotReachedError(err))

	// 22 + 4 + 5
	cert = committee.CertificateFixture(t, header, 8, 6, 5, 3, 4)
	require.NoError(t, cert.Verify(committee.Committee))

	// one short of quorum
	cert = committee.CertificateFixture(t, header, 8, 6, 5, 3, 2, 0)
	assert.True(t, narwhal.IsQuorumNotReachedError(cert.Verify(committee.Committee)))
}
