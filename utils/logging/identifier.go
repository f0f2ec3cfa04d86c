package logging

import (
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
)

// ID returns the raw bytes of an identifier, for use with zerolog's Hex field.
func ID(id narwhal.Identifier) []byte {
	return id[:]
}

func IDs(ids []narwhal.Identifier) []string {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, id.String())
	}
	return ss
}

// Type returns the name of the dynamic type of a message, for log fields.
func Type(obj interface{}) string {
	return fmt.Sprintf("%T", obj)
}
