package narwhal

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/dagbft/narwhal/crypto/hash"
	"github.com/dagbft/narwhal/model/encoding/cbor"
)

// IdentifierLen is the size of a digest in bytes.
const IdentifierLen = hash.HashLen

// Identifier is a content digest. Headers, certificates and batches are all
// addressed by their identifier.
type Identifier [IdentifierLen]byte

// ZeroID is the lowest value in the 32-byte ID space.
var ZeroID = Identifier{}

// HexStringToIdentifier converts a hex string to an identifier. The input
// must be 64 characters long and contain only valid hex characters.
func HexStringToIdentifier(hexString string) (Identifier, error) {
	var identifier Identifier
	i, err := hex.Decode(identifier[:], []byte(hexString))
	if err != nil {
		return identifier, err
	}
	if i != IdentifierLen {
		return identifier, fmt.Errorf("malformed input, expected %d bytes (%d hex characters), decoded %d", IdentifierLen, IdentifierLen*2, i)
	}
	return identifier, nil
}

// MustHexStringToIdentifier converts a hex string to an identifier and panics on malformed input.
func MustHexStringToIdentifier(hexString string) Identifier {
	id, err := HexStringToIdentifier(hexString)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first eight hex characters, for log lines.
func (id Identifier) Short() string {
	return hex.EncodeToString(id[:4])
}

func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identifier) UnmarshalText(text []byte) error {
	var err error
	*id, err = HexStringToIdentifier(string(text))
	return err
}

// Compare orders identifiers by their bytes.
func (id Identifier) Compare(other Identifier) int {
	return bytes.Compare(id[:], other[:])
}

// MakeID creates an identifier from the tagged canonical encoding of the entity.
func MakeID(tag []byte, entity interface{}) (Identifier, error) {
	data, err := cbor.Marshal(entity)
	if err != nil {
		return ZeroID, fmt.Errorf("could not encode entity: %w", err)
	}
	return hash.ComputeSHA3_256(tag, data), nil
}

// IdentifierList is a list of identifiers.
type IdentifierList []Identifier

func (il IdentifierList) Len() int           { return len(il) }
func (il IdentifierList) Less(i, j int) bool { return il[i].Compare(il[j]) < 0 }
func (il IdentifierList) Swap(i, j int)      { il[i], il[j] = il[j], il[i] }

// Lookup converts the list into a set.
func (il IdentifierList) Lookup() map[Identifier]struct{} {
	lookup := make(map[Identifier]struct{}, len(il))
	for _, id := range il {
		lookup[id] = struct{}{}
	}
	return lookup
}

// Canonical returns a sorted copy of the list with duplicates removed.
func (il IdentifierList) Canonical() IdentifierList {
	dup := make(IdentifierList, len(il))
	copy(dup, il)
	sort.Sort(dup)
	out := dup[:0]
	for i, id := range dup {
		if i > 0 && id == dup[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsCanonical returns true if the list is strictly increasing.
func (il IdentifierList) IsCanonical() bool {
	for i := 1; i < len(il); i++ {
		if il[i-1].Compare(il[i]) >= 0 {
			return false
		}
	}
	return true
}

// Strings returns the hex representation of every identifier.
func (il IdentifierList) Strings() []string {
	ss := make([]string, 0, len(il))
	for _, id := range il {
		ss = append(ss, id.String())
	}
	return ss
}
