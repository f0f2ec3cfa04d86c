package narwhal

import (
	"fmt"
	"sort"

	"github.com/dagbft/narwhal/crypto"
)

// VoteSignature is one vote as carried inside a certificate.
type VoteSignature struct {
	Author    AuthorityIndex
	Signature crypto.Signature
}

// Certificate is a header together with votes from a quorum of authorities.
type Certificate struct {
	Header *Header
	Votes  []VoteSignature
}

// NewCertificate assembles a certificate, rejecting duplicate voters and vote
// sets below quorum. Signatures are not checked here. Votes are sorted by author.
func NewCertificate(committee *Committee, header *Header, votes []VoteSignature) (*Certificate, error) {
	sorted := make([]VoteSignature, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Author < sorted[j].Author })

	if _, err := votingStake(committee, sorted); err != nil {
		return nil, err
	}
	return &Certificate{Header: header, Votes: sorted}, nil
}

func genesisCertificate(epoch Epoch, author AuthorityIndex) *Certificate {
	return &Certificate{Header: genesisHeader(epoch, author)}
}

// ID is derived from the header alone, so certificates for the same header
// with different vote sets share an identifier.
func (c *Certificate) ID() Identifier {
	return MakeCertificateID(c.Header.ID, c.Header.Round, c.Header.Author)
}

func (c *Certificate) Round() Round {
	return c.Header.Round
}

func (c *Certificate) Origin() AuthorityIndex {
	return c.Header.Author
}

func (c *Certificate) Epoch() Epoch {
	return c.Header.Epoch
}

func (c *Certificate) String() string {
	return fmt.Sprintf("certificate %s (origin %d, round %d, %d votes)", c.ID().Short(), c.Origin(), c.Round(), len(c.Votes))
}

// Verify checks the certificate against the committee. Genesis certificates
// always pass. Otherwise the header must verify, voters must be distinct,
// their stake must reach quorum and every vote signature must verify.
func (c *Certificate) Verify(committee *Committee) error {
	if c.Header == nil {
		return InvalidHeaderError{Err: fmt.Errorf("certificate without header")}
	}
	if c.Header.Round == 0 {
		return c.verifyGenesis(committee)
	}

	if err := c.Header.Verify(committee); err != nil {
		return fmt.Errorf("invalid certificate header: %w", err)
	}

	weight, err := votingStake(committee, c.Votes)
	if err != nil {
		return err
	}
	if !committee.ReachedQuorum(weight) {
		return QuorumNotReachedError{Stake: weight, Threshold: committee.QuorumThreshold()}
	}

	signatures := make([]crypto.KeyedSignature, 0, len(c.Votes))
	for _, vote := range c.Votes {
		signatures = append(signatures, crypto.KeyedSignature{
			PublicKey: committee.Authority(vote.Author).PublicKey,
			Signature: vote.Signature,
		})
	}
	digest := c.ID()
	if err := crypto.BatchVerify(digest[:], signatures); err != nil {
		return InvalidSignatureError{Err: err}
	}
	return nil
}

func (c *Certificate) verifyGenesis(committee *Committee) error {
	id, err := c.Header.Digest()
	if err != nil {
		return NewInvalidHeaderErrorf(c.Header, "could not compute digest: %w", err)
	}
	if id != c.Header.ID || !committee.IsGenesis(c.ID()) {
		return NewInvalidHeaderErrorf(c.Header, "round 0 certificate is not a genesis certificate")
	}
	return nil
}

// votingStake sums the stake of the voters. Unknown or zero-stake voters and
// repeated voters are rejected.
func votingStake(committee *Committee, votes []VoteSignature) (Stake, error) {
	seen := make(map[AuthorityIndex]struct{}, len(votes))
	var weight Stake
	for _, vote := range votes {
		voter, ok := committee.ToAuthorityIndex(uint64(vote.Author))
		if !ok || committee.Stake(voter) == 0 {
			return 0, UnknownAuthorityError{Authority: uint64(vote.Author)}
		}
		if _, dup := seen[voter]; dup {
			return 0, AuthorityReuseError{Authority: voter}
		}
		seen[voter] = struct{}{}
		weight += committee.Stake(voter)
	}
	return weight, nil
}
