package core

import (
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
)

// VotesAggregator collects the votes for one header of this node and
// assembles its certificate. Votes must be verified before they are appended.
//
// Not concurrency safe.
type VotesAggregator struct {
	committee *narwhal.Committee
	header    *narwhal.Header
	votes     []narwhal.VoteSignature
	used      map[narwhal.AuthorityIndex]struct{}
	weight    narwhal.Stake
	certified bool
}

func NewVotesAggregator(committee *narwhal.Committee, header *narwhal.Header) *VotesAggregator {
	return &VotesAggregator{
		committee: committee,
		header:    header,
		used:      make(map[narwhal.AuthorityIndex]struct{}),
	}
}

func (a *VotesAggregator) Header() *narwhal.Header {
	return a.header
}

// Append adds a vote. The certificate is returned exactly once, by the call
// that makes the votes reach quorum.
// Expected errors during normal operations:
//   - narwhal.AuthorityReuseError if the voter already voted
func (a *VotesAggregator) Append(vote *narwhal.Vote) (*narwhal.Certificate, error) {
	if vote.HeaderID != a.header.ID {
		return nil, fmt.Errorf("vote for header %x appended to aggregator of header %x", vote.HeaderID, a.header.ID)
	}
	if _, ok := a.used[vote.Author]; ok {
		return nil, narwhal.AuthorityReuseError{Authority: vote.Author}
	}
	a.used[vote.Author] = struct{}{}
	a.votes = append(a.votes, narwhal.VoteSignature{Author: vote.Author, Signature: vote.Signature})
	a.weight += a.committee.Stake(vote.Author)

	if a.certified || !a.committee.ReachedQuorum(a.weight) {
		return nil, nil
	}
	a.certified = true
	cert, err := narwhal.NewCertificate(a.committee, a.header, a.votes)
	if err != nil {
		return nil, fmt.Errorf("could not assemble certificate for header %x: %w", a.header.ID, err)
	}
	return cert, nil
}
