package operation

import (
	"github.com/dagbft/narwhal/storage"
)

// UpsertByKey encodes the entity and stores it under key, overwriting any
// previous value.
func UpsertByKey(w storage.Writer, key []byte, entity interface{}) error {
	value, err := encodeEntity(entity)
	if err != nil {
		return err
	}
	if err := w.Set(key, value); err != nil {
		return wrapKey(key, err)
	}
	return nil
}

// RemoveByKey deletes the key. Deleting a missing key is a no-op.
func RemoveByKey(w storage.Writer, key []byte) error {
	if err := w.Delete(key); err != nil {
		return wrapKey(key, err)
	}
	return nil
}
