package hash

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/sha3"
)

// HashLen is the output length of the digest function, in bytes.
const HashLen = 32

// Hash is the output of a hasher.
type Hash []byte

func (h Hash) Hex() string {
	return hex.EncodeToString(h)
}

// Hasher computes digests over byte slices.
type Hasher interface {
	// ComputeHash resets the state, writes data and returns the digest.
	ComputeHash(data []byte) Hash
	// Write appends data to the running state.
	Write(data []byte) (int, error)
	// SumHash returns the digest over everything written since the last reset.
	SumHash() Hash
	Reset()
}

type sha3_256Algo struct {
	hash.Hash
}

// NewSHA3_256 returns a new instance of SHA3-256 hasher.
func NewSHA3_256() Hasher {
	return &sha3_256Algo{Hash: sha3.New256()}
}

func (s *sha3_256Algo) ComputeHash(data []byte) Hash {
	s.Reset()
	_, _ = s.Write(data)
	return s.Sum(nil)
}

func (s *sha3_256Algo) SumHash() Hash {
	return s.Sum(nil)
}

// ComputeSHA3_256 hashes the concatenation of the given parts into a fixed size array.
func ComputeSHA3_256(parts ...[]byte) [HashLen]byte {
	h := sha3.New256()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [HashLen]byte
	copy(out[:], h.Sum(nil))
	return out
}
