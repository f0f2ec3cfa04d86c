package narwhal

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dagbft/narwhal/crypto"
)

// AuthorityIndex is a dense handle for an authority of a committee. Indices
// taken from untrusted input must be minted through Committee.ToAuthorityIndex.
type AuthorityIndex uint16

// MaxCommitteeSize is the largest committee that AuthorityIndex can address.
const MaxCommitteeSize = math.MaxUint16

// QuorumThreshold returns the stake 2f+1 needed for a Byzantine-safe decision,
// i.e. floor(2*total/3)+1.
func QuorumThreshold(totalStake Stake) Stake {
	return 2*totalStake/3 + 1
}

// ValidityThreshold returns the stake f+1 that cannot consist of faulty
// authorities only, i.e. ceil(total/3).
func ValidityThreshold(totalStake Stake) Stake {
	return (totalStake + 2) / 3
}

// Committee is the set of authorities of one epoch together with the
// thresholds derived from their stake. It is immutable after construction.
type Committee struct {
	epoch             Epoch
	authorities       []Authority
	indices           map[crypto.PublicKey]AuthorityIndex
	totalStake        Stake
	quorumThreshold   Stake
	validityThreshold Stake

	genesisOnce sync.Once
	genesis     []*Certificate
	genesisIDs  map[Identifier]struct{}
}

// NewCommittee builds the committee of an epoch. Authorities are ordered by
// public key, so every node derives the same indices.
func NewCommittee(epoch Epoch, authorities []Authority) (*Committee, error) {
	if len(authorities) == 0 {
		return nil, NewConfigurationErrorf("committee must not be empty")
	}
	if len(authorities) > MaxCommitteeSize {
		return nil, NewConfigurationErrorf("committee of size %d exceeds capacity %d", len(authorities), MaxCommitteeSize)
	}

	sorted := make([]Authority, len(authorities))
	copy(sorted, authorities)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].PublicKey[:], sorted[j].PublicKey[:]) < 0
	})

	indices := make(map[crypto.PublicKey]AuthorityIndex, len(sorted))
	var total Stake
	for i, a := range sorted {
		if _, dup := indices[a.PublicKey]; dup {
			return nil, NewConfigurationErrorf("duplicate authority %s", a.PublicKey)
		}
		if total+a.Stake < total {
			return nil, NewConfigurationErrorf("total stake overflows")
		}
		indices[a.PublicKey] = AuthorityIndex(i)
		total += a.Stake
	}
	if total == 0 {
		return nil, NewConfigurationErrorf("total stake must be positive")
	}

	return &Committee{
		epoch:             epoch,
		authorities:       sorted,
		indices:           indices,
		totalStake:        total,
		quorumThreshold:   QuorumThreshold(total),
		validityThreshold: ValidityThreshold(total),
	}, nil
}

func (c *Committee) Epoch() Epoch {
	return c.epoch
}

func (c *Committee) Size() int {
	return len(c.authorities)
}

func (c *Committee) TotalStake() Stake {
	return c.totalStake
}

func (c *Committee) QuorumThreshold() Stake {
	return c.quorumThreshold
}

func (c *Committee) ValidityThreshold() Stake {
	return c.validityThreshold
}

// ReachedQuorum returns true if the stake is at least the quorum threshold.
func (c *Committee) ReachedQuorum(stake Stake) bool {
	return stake >= c.quorumThreshold
}

// ReachedValidity returns true if the stake is at least the validity threshold.
func (c *Committee) ReachedValidity(stake Stake) bool {
	return stake >= c.validityThreshold
}

// ToAuthorityIndex checks that raw addresses an authority of this committee.
func (c *Committee) ToAuthorityIndex(raw uint64) (AuthorityIndex, bool) {
	if raw >= uint64(len(c.authorities)) {
		return 0, false
	}
	return AuthorityIndex(raw), true
}

// Authority returns the authority at the index. Out of range indices panic.
func (c *Committee) Authority(index AuthorityIndex) Authority {
	return c.authorities[c.mustIndex(index)]
}

// Stake returns the stake of the authority at the index. Out of range indices panic.
func (c *Committee) Stake(index AuthorityIndex) Stake {
	return c.authorities[c.mustIndex(index)].Stake
}

// Indices returns every valid index in ascending order.
func (c *Committee) Indices() []AuthorityIndex {
	indices := make([]AuthorityIndex, len(c.authorities))
	for i := range c.authorities {
		indices[i] = AuthorityIndex(i)
	}
	return indices
}

// IndexOf looks up an authority by its public key.
func (c *Committee) IndexOf(key crypto.PublicKey) (AuthorityIndex, bool) {
	index, ok := c.indices[key]
	return index, ok
}

// Worker returns the worker of an authority.
func (c *Committee) Worker(index AuthorityIndex, worker WorkerID) (WorkerInfo, error) {
	info, ok := c.Authority(index).Workers[worker]
	if !ok {
		return WorkerInfo{}, UnknownWorkerError{Authority: index, Worker: worker}
	}
	return info, nil
}

// Others returns the indices of every authority but myself.
func (c *Committee) Others(myself AuthorityIndex) []AuthorityIndex {
	others := make([]AuthorityIndex, 0, len(c.authorities)-1)
	for i := range c.authorities {
		if AuthorityIndex(i) != myself {
			others = append(others, AuthorityIndex(i))
		}
	}
	return others
}

// Genesis returns one unsigned round-0 certificate per authority.
func (c *Committee) Genesis() []*Certificate {
	c.genesisOnce.Do(c.buildGenesis)
	return c.genesis
}

// IsGenesis returns true if the digest identifies one of the genesis certificates.
func (c *Committee) IsGenesis(id Identifier) bool {
	c.genesisOnce.Do(c.buildGenesis)
	_, ok := c.genesisIDs[id]
	return ok
}

func (c *Committee) buildGenesis() {
	c.genesis = make([]*Certificate, 0, len(c.authorities))
	c.genesisIDs = make(map[Identifier]struct{}, len(c.authorities))
	for i := range c.authorities {
		cert := genesisCertificate(c.epoch, AuthorityIndex(i))
		c.genesis = append(c.genesis, cert)
		c.genesisIDs[cert.ID()] = struct{}{}
	}
}

func (c *Committee) mustIndex(index AuthorityIndex) int {
	if int(index) >= len(c.authorities) {
		panic(fmt.Sprintf("authority index %d out of range for committee of size %d", index, len(c.authorities)))
	}
	return int(index)
}
