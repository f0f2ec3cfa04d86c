package crypto

import (
	"encoding/hex"
)

const (
	// PubKeyLen is the length of an x-only BIP-340 public key.
	PubKeyLen = 32
	// PrKeyLen is the length of a serialized private key scalar.
	PrKeyLen = 32
	// SignatureLen is the length of a BIP-340 schnorr signature.
	SignatureLen = 64
)

// Signature is a generic type, regardless of the signature scheme
type Signature []byte

func (s Signature) String() string {
	return hex.EncodeToString(s)
}

// Bytes returns a copy of the raw signature.
func (s Signature) Bytes() []byte {
	b := make([]byte, len(s))
	copy(b, s)
	return b
}
