package crypto_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/crypto/hash"
)

func seed(b byte) []byte {
	s := make([]byte, crypto.PrKeyLen)
	s[len(s)-1] = b
	return s
}

func TestSignVerify(t *testing.T) {
	sk, err := crypto.DecodePrivateKey(seed(7))
	require.NoError(t, err)

	digest := hash.ComputeSHA3_256([]byte("message"))
	sig, err := sk.Sign(digest[:])
	require.NoError(t, err)
	assert.Len(t, sig, crypto.SignatureLen)

	valid, err := sk.PublicKey().Verify(sig, digest[:])
	require.NoError(t, err)
	assert.True(t, valid)

	other := hash.ComputeSHA3_256([]byte("other message"))
	valid, err = sk.PublicKey().Verify(sig, other[:])
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = sk.PublicKey().Verify(sig[:10], digest[:])
	assert.True(t, crypto.IsInvalidInputsError(err))
}

func TestDecodePrivateKey(t *testing.T) {
	_, err := crypto.DecodePrivateKey(make([]byte, crypto.PrKeyLen))
	assert.True(t, crypto.IsInvalidInputsError(err), "zero scalar must be rejected")

	_, err = crypto.DecodePrivateKey([]byte{1, 2, 3})
	assert.True(t, crypto.IsInvalidInputsError(err))

	sk, err := crypto.DecodePrivateKey(seed(3))
	require.NoError(t, err)
	again, err := crypto.DecodePrivateKey(sk.Encode())
	require.NoError(t, err)
	assert.Equal(t, sk.PublicKey(), again.PublicKey())
}

func TestPublicKeyText(t *testing.T) {
	sk, err := crypto.DecodePrivateKey(seed(11))
	require.NoError(t, err)

	text, err := sk.PublicKey().MarshalText()
	require.NoError(t, err)

	var decoded crypto.PublicKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, decoded.Equals(sk.PublicKey()))

	assert.Error(t, decoded.UnmarshalText([]byte("zz")))
}

func TestBatchVerify(t *testing.T) {
	digest := hash.ComputeSHA3_256([]byte("certificate"))

	sigs := make([]crypto.KeyedSignature, 0, 5)
	for i := byte(1); i <= 5; i++ {
		sk, err := crypto.DecodePrivateKey(seed(i))
		require.NoError(t, err)
		sig, err := sk.Sign(digest[:])
		require.NoError(t, err)
		sigs = append(sigs, crypto.KeyedSignature{PublicKey: sk.PublicKey(), Signature: sig})
	}

	t.Run("all valid", func(t *testing.T) {
		require.NoError(t, crypto.BatchVerify(digest[:], sigs))
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, crypto.BatchVerify(digest[:], nil))
	})

	t.Run("one swapped signature", func(t *testing.T) {
		bad := append([]crypto.KeyedSignature(nil), sigs...)
		bad[2].Signature = sigs[3].Signature
		err := crypto.BatchVerify(digest[:], bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, crypto.ErrInvalidSignature))
	})

	t.Run("malformed signature", func(t *testing.T) {
		bad := append([]crypto.KeyedSignature(nil), sigs...)
		bad[0].Signature = crypto.Signature{0x01}
		err := crypto.BatchVerify(digest[:], bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, crypto.ErrInvalidSignature))
	})
}
