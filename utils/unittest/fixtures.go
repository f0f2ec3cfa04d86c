package unittest

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/model/narwhal"
)

func IdentifierFixture() narwhal.Identifier {
	var id narwhal.Identifier
	_, _ = rand.Read(id[:])
	return id
}

// IdentifierListFixture returns a list of unique identifiers.
func IdentifierListFixture(n int) narwhal.IdentifierList {
	list := make(narwhal.IdentifierList, n)
	for i := 0; i < n; i++ {
		list[i] = IdentifierFixture()
	}
	return list
}

// KeyFixture returns the same private key for the same seed.
func KeyFixture(t testing.TB, seed uint64) *crypto.PrivateKey {
	raw := make([]byte, crypto.PrKeyLen)
	binary.BigEndian.PutUint64(raw[crypto.PrKeyLen-8:], seed+1)
	raw[0] = 0x01
	key, err := crypto.DecodePrivateKey(raw)
	require.NoError(t, err)
	return key
}

func TransactionFixture() narwhal.Transaction {
	tx := make([]byte, 32)
	_, _ = rand.Read(tx)
	return tx
}

func BatchFixture(transactions int) *narwhal.Batch {
	batch := &narwhal.Batch{Transactions: make([]narwhal.Transaction, 0, transactions)}
	for i := 0; i < transactions; i++ {
		batch.Transactions = append(batch.Transactions, TransactionFixture())
	}
	return batch
}

// PayloadFixture references n random batches on worker 0.
func PayloadFixture(n int) map[narwhal.Identifier]narwhal.PayloadEntry {
	payload := make(map[narwhal.Identifier]narwhal.PayloadEntry, n)
	now := narwhal.TimestampMs(time.Now().UnixMilli())
	for i := 0; i < n; i++ {
		payload[IdentifierFixture()] = narwhal.PayloadEntry{WorkerID: 0, CreatedAt: now}
	}
	return payload
}

type committeeConfig struct {
	epoch  narwhal.Epoch
	stakes []narwhal.Stake
	seed   uint64
}

// WithStakes assigns stakes by authority index.
func WithStakes(stakes ...narwhal.Stake) func(*committeeConfig) {
	return func(c *committeeConfig) {
		c.stakes = stakes
	}
}

func WithEpoch(epoch narwhal.Epoch) func(*committeeConfig) {
	return func(c *committeeConfig) {
		c.epoch = epoch
	}
}

// WithKeySeed shifts the keys of the committee, so that two committees built
// with different seeds share no authority.
func WithKeySeed(seed uint64) func(*committeeConfig) {
	return func(c *committeeConfig) {
		c.seed = seed
	}
}

// Committee is a committee together with the signing keys of its members.
type Committee struct {
	*narwhal.Committee
	// Signers holds the private key of every authority, by authority index.
	Signers []*crypto.PrivateKey
}

// CommitteeFixture builds a committee of n authorities with one worker each.
// Unless WithStakes is given every authority has stake 1.
func CommitteeFixture(t testing.TB, n int, opts ...func(*committeeConfig)) *Committee {
	cfg := committeeConfig{epoch: 0}
	for _, apply := range opts {
		apply(&cfg)
	}
	if cfg.stakes == nil {
		cfg.stakes = make([]narwhal.Stake, n)
		for i := range cfg.stakes {
			cfg.stakes[i] = 1
		}
	}
	require.Len(t, cfg.stakes, n)

	keys := make([]*crypto.PrivateKey, n)
	for i := range keys {
		keys[i] = KeyFixture(t, cfg.seed*uint64(MaxFixtureCommittee)+uint64(i))
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i].PublicKey(), keys[j].PublicKey()
		return bytes.Compare(a[:], b[:]) < 0
	})

	authorities := make([]narwhal.Authority, n)
	for i, key := range keys {
		authorities[i] = narwhal.Authority{
			PublicKey:      key.PublicKey(),
			Stake:          cfg.stakes[i],
			PrimaryAddress: fmt.Sprintf("127.0.0.1:%d", 4000+i),
			Workers: map[narwhal.WorkerID]narwhal.WorkerInfo{
				0: {
					Name:                key.PublicKey(),
					TransactionsAddress: fmt.Sprintf("127.0.0.1:%d", 5000+i),
					WorkerAddress:       fmt.Sprintf("127.0.0.1:%d", 6000+i),
				},
			},
		}
	}

	committee, err := narwhal.NewCommittee(cfg.epoch, authorities)
	require.NoError(t, err)
	for i, key := range keys {
		index, ok := committee.IndexOf(key.PublicKey())
		require.True(t, ok)
		require.Equal(t, narwhal.AuthorityIndex(i), index)
	}
	return &Committee{Committee: committee, Signers: keys}
}

// MaxFixtureCommittee bounds the size of committees built by CommitteeFixture.
const MaxFixtureCommittee = 1 << 10

// GenesisIDs returns the digests of the genesis certificates.
func (c *Committee) GenesisIDs() []narwhal.Identifier {
	genesis := c.Genesis()
	ids := make([]narwhal.Identifier, 0, len(genesis))
	for _, cert := range genesis {
		ids = append(ids, cert.ID())
	}
	return ids
}

// HeaderFixture builds a header by author on the given parents. A nil payload
// means one random batch.
func (c *Committee) HeaderFixture(t testing.TB, author narwhal.AuthorityIndex, round narwhal.Round, parents []narwhal.Identifier, payload map[narwhal.Identifier]narwhal.PayloadEntry) *narwhal.Header {
	if payload == nil {
		payload = PayloadFixture(1)
	}
	header, err := narwhal.NewHeader(narwhal.UnsignedHeader{
		Author:    author,
		Round:     round,
		Epoch:     c.Epoch(),
		CreatedAt: narwhal.TimestampMs(time.Now().UnixMilli()),
		Payload:   payload,
		Parents:   parents,
	}, c.Signers[author])
	require.NoError(t, err)
	return header
}

// Votes returns the votes of the given voters for the header.
func (c *Committee) Votes(t testing.TB, header *narwhal.Header, voters ...narwhal.AuthorityIndex) []*narwhal.Vote {
	votes := make([]*narwhal.Vote, 0, len(voters))
	for _, voter := range voters {
		vote, err := narwhal.NewVote(header, voter, c.Signers[voter])
		require.NoError(t, err)
		votes = append(votes, vote)
	}
	return votes
}

// CertificateFixture certifies the header with the votes of the given voters,
// or of every authority if none are given.
func (c *Committee) CertificateFixture(t testing.TB, header *narwhal.Header, voters ...narwhal.AuthorityIndex) *narwhal.Certificate {
	if len(voters) == 0 {
		voters = c.Indices()
	}
	votes := c.Votes(t, header, voters...)
	signatures := make([]narwhal.VoteSignature, 0, len(votes))
	for _, vote := range votes {
		signatures = append(signatures, narwhal.VoteSignature{Author: vote.Author, Signature: vote.Signature})
	}
	cert, err := narwhal.NewCertificate(c.Committee, header, signatures)
	require.NoError(t, err)
	return cert
}

// CertificatesForRound returns one certificate per given author (every
// authority if none are given) at the round, each referencing all parents.
func (c *Committee) CertificatesForRound(t testing.TB, round narwhal.Round, parents []narwhal.Identifier, authors ...narwhal.AuthorityIndex) []*narwhal.Certificate {
	if len(authors) == 0 {
		authors = c.Indices()
	}
	certs := make([]*narwhal.Certificate, 0, len(authors))
	for _, author := range authors {
		header := c.HeaderFixture(t, author, round, parents, nil)
		certs = append(certs, c.CertificateFixture(t, header))
	}
	return certs
}

// CertificateRounds builds rounds 1..rounds on top of genesis where every
// authority references every certificate of the previous round. The result
// is indexed by round minus one.
func (c *Committee) CertificateRounds(t testing.TB, rounds int) [][]*narwhal.Certificate {
	all := make([][]*narwhal.Certificate, 0, rounds)
	parents := c.GenesisIDs()
	for r := 1; r <= rounds; r++ {
		certs := c.CertificatesForRound(t, narwhal.Round(r), parents)
		all = append(all, certs)
		parents = CertificateIDs(certs)
	}
	return all
}

func CertificateIDs(certs []*narwhal.Certificate) []narwhal.Identifier {
	ids := make([]narwhal.Identifier, 0, len(certs))
	for _, cert := range certs {
		ids = append(ids, cert.ID())
	}
	return ids
}
