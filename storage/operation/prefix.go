package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
)

const (
	// codes for entities
	codeHeader      = 10
	codeCertificate = 11
	codeBatch       = 12

	// codes for indexes
	codeHeaderByCertificate = 20
	codeHeaderByAuthorRound = 21
	codePayload             = 22
	codeLastVote            = 23
)

// MakePrefix concatenates the code with the big-endian encoding of every key part.
func MakePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1, 1+len(keys)*8)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, EncodeKeyPart(key)...)
	}
	return prefix
}

// EncodeKeyPart encodes one key part so that numeric parts sort in numeric order.
func EncodeKeyPart(v interface{}) []byte {
	switch i := v.(type) {
	case uint8:
		return []byte{i}
	case uint16:
		return binary.BigEndian.AppendUint16(nil, i)
	case uint32:
		return binary.BigEndian.AppendUint32(nil, i)
	case uint64:
		return binary.BigEndian.AppendUint64(nil, i)
	case narwhal.AuthorityIndex:
		return binary.BigEndian.AppendUint16(nil, uint16(i))
	case narwhal.Round:
		return binary.BigEndian.AppendUint64(nil, uint64(i))
	case narwhal.WorkerID:
		return binary.BigEndian.AppendUint32(nil, uint32(i))
	case narwhal.Identifier:
		return i[:]
	case string:
		return []byte(i)
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
