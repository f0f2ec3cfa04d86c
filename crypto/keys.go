package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// PublicKey is an x-only secp256k1 public key as used by BIP-340 schnorr signatures.
// It is a comparable value and can be used as a map key.
type PublicKey [PubKeyLen]byte

// DecodePublicKey parses and validates a serialized public key.
func DecodePublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PubKeyLen {
		return pk, invalidInputsErrorf("public key must be %d bytes, got %d", PubKeyLen, len(b))
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return pk, invalidInputsErrorf("could not parse public key: %w", err)
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// Equals returns true if both keys encode the same point.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("could not decode hex public key: %w", err)
	}
	decoded, err := DecodePublicKey(raw)
	if err != nil {
		return err
	}
	*pk = decoded
	return nil
}

// Verify checks the signature over the 32 byte message digest.
// Malformed keys or signatures return an error; a well formed but wrong signature returns false.
func (pk PublicKey) Verify(sig Signature, digest []byte) (bool, error) {
	key, err := schnorr.ParsePubKey(pk[:])
	if err != nil {
		return false, invalidInputsErrorf("could not parse public key: %w", err)
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false, invalidInputsErrorf("could not parse signature: %w", err)
	}
	return parsed.Verify(digest, key), nil
}

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *btcec.PrivateKey
	pub PublicKey
}

// GeneratePrivateKey creates a fresh random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate private key: %w", err)
	}
	return newPrivateKey(key), nil
}

// DecodePrivateKey builds a key from its 32 byte scalar. The seed must be non zero
// and smaller than the group order.
func DecodePrivateKey(seed []byte) (*PrivateKey, error) {
	if len(seed) != PrKeyLen {
		return nil, invalidInputsErrorf("private key must be %d bytes, got %d", PrKeyLen, len(seed))
	}
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(seed); overflow || scalar.IsZero() {
		return nil, invalidInputsErrorf("private key scalar out of range")
	}
	key, _ := btcec.PrivKeyFromBytes(seed)
	return newPrivateKey(key), nil
}

func newPrivateKey(key *btcec.PrivateKey) *PrivateKey {
	var pub PublicKey
	copy(pub[:], schnorr.SerializePubKey(key.PubKey()))
	return &PrivateKey{key: key, pub: pub}
}

func (sk *PrivateKey) PublicKey() PublicKey {
	return sk.pub
}

// Encode returns the 32 byte scalar.
func (sk *PrivateKey) Encode() []byte {
	return sk.key.Serialize()
}

// Sign produces a schnorr signature over a 32 byte digest.
func (sk *PrivateKey) Sign(digest []byte) (Signature, error) {
	if len(digest) != 32 {
		return nil, invalidInputsErrorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := schnorr.Sign(sk.key, digest)
	if err != nil {
		return nil, fmt.Errorf("could not sign digest: %w", err)
	}
	return sig.Serialize(), nil
}
