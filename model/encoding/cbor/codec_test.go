package cbor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/model/encoding/cbor"
)

func TestCanonicalMapOrder(t *testing.T) {
	enc := cbor.NewEncoder()

	a := map[string]uint64{}
	b := map[string]uint64{}
	keys := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for i, k := range keys {
		a[k] = uint64(i)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = uint64(i)
	}

	ea := enc.MustEncode(a)
	eb := enc.MustEncode(b)
	assert.Equal(t, ea, eb)

	var decoded map[string]uint64
	enc.MustDecode(ea, &decoded)
	assert.Equal(t, a, decoded)
}

func TestRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	raw := []byte{0xa2, 0x61, 0x61, 0x01, 0x61, 0x61, 0x02}
	var decoded map[string]int
	require.Error(t, cbor.Unmarshal(raw, &decoded))
}
