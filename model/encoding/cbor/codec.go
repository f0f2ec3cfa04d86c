package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/dagbft/narwhal/model/encoding"
)

var encMode = func() cbor.EncMode {
	// map keys are sorted by their encoded form, so digests do not depend on
	// map iteration order
	options := cbor.CanonicalEncOptions()
	encMode, err := options.EncMode()
	if err != nil {
		panic(fmt.Errorf("could not build canonical cbor encoding mode: %w", err))
	}
	return encMode
}()

var decMode = func() cbor.DecMode {
	decMode, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		MaxMapPairs: 1 << 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Errorf("could not build cbor decoding mode: %w", err))
	}
	return decMode
}()

// Encoder is the canonical CBOR encoder used for digests and on the wire.
type Encoder struct{}

var _ encoding.Encoder = (*Encoder)(nil)

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(val interface{}) ([]byte, error) {
	return encMode.Marshal(val)
}

func (e *Encoder) Decode(b []byte, val interface{}) error {
	return decMode.Unmarshal(b, val)
}

func (e *Encoder) MustEncode(val interface{}) []byte {
	b, err := e.Encode(val)
	if err != nil {
		panic(err)
	}
	return b
}

func (e *Encoder) MustDecode(b []byte, val interface{}) {
	err := e.Decode(b, val)
	if err != nil {
		panic(err)
	}
}

// Marshal encodes the value canonically.
func Marshal(val interface{}) ([]byte, error) {
	return encMode.Marshal(val)
}

// Unmarshal decodes strict CBOR into val.
func Unmarshal(b []byte, val interface{}) error {
	return decMode.Unmarshal(b, val)
}
