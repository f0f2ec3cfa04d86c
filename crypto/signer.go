package crypto

// Signer is the signing capability of a single authority. It is passed explicitly
// to the components that produce signed messages so that tests can substitute
// deterministic keys.
type Signer interface {
	// PublicKey returns the key that verifies this signer's signatures.
	PublicKey() PublicKey
	// Sign signs a 32 byte digest.
	Sign(digest []byte) (Signature, error)
}

var _ Signer = (*PrivateKey)(nil)
