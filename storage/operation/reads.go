package operation

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/storage"
)

// IterationFunc is called on every key of an iteration. The key is a copy and
// may be retained. getValue decodes the value of the current key. Returning
// bail == true stops the iteration early.
type IterationFunc func(keyCopy []byte, getValue func(destVal interface{}) error) (bail bool, err error)

// TraverseByPrefix iterates over every key with the given prefix in ascending order.
// Errors returned by iterFunc are propagated to the caller.
func TraverseByPrefix(r storage.Reader, prefix []byte, iterFunc IterationFunc) error {
	return IterateKeys(r, prefix, prefix, iterFunc)
}

// IterateKeys iterates over keys that start with a prefix in the range
// [startPrefix, endPrefix], both inclusive.
func IterateKeys(r storage.Reader, startPrefix []byte, endPrefix []byte, iterFunc IterationFunc) (errToReturn error) {
	if len(startPrefix) == 0 || len(endPrefix) == 0 {
		return fmt.Errorf("prefixes must not be empty")
	}

	it, err := r.NewIter(startPrefix, endPrefix)
	if err != nil {
		return fmt.Errorf("can not create iterator: %w", err)
	}
	defer func() {
		if closeErr := it.Close(); closeErr != nil {
			errToReturn = multierror.Append(errToReturn, closeErr).ErrorOrNil()
		}
	}()

	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		// backends reuse the key buffer between iterations
		keyCopy := make([]byte, len(key))
		copy(keyCopy, key)

		bail, err := iterFunc(keyCopy, func(destVal interface{}) error {
			return it.Value(func(val []byte) error {
				return decodeValue(val, destVal)
			})
		})
		if err != nil {
			return err
		}
		if bail {
			return nil
		}
	}
	return nil
}

// KeyExists returns true if a key exists in the database.
// No errors are expected during normal operation.
func KeyExists(r storage.Reader, key []byte) (exist bool, errToReturn error) {
	_, closer, err := r.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, irrecoverable.NewExceptionf("could not load data: %w", err)
	}
	defer closeAndMerge(closer, &errToReturn)
	return true, nil
}

// RetrieveByKey decodes the value stored under key into entity.
// Error returns:
//   - storage.ErrNotFound if the key does not exist in the database
//   - an exception in case of unexpected failure from the database layer, or
//     failure to decode an existing value
func RetrieveByKey(r storage.Reader, key []byte, entity interface{}) (errToReturn error) {
	val, closer, err := r.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return wrapKey(key, storage.ErrNotFound)
		}
		return irrecoverable.NewExceptionf("could not load data: %w", err)
	}
	defer closeAndMerge(closer, &errToReturn)

	return decodeValue(val, entity)
}

func closeAndMerge(closer interface{ Close() error }, errToReturn *error) {
	if err := closer.Close(); err != nil {
		*errToReturn = multierror.Append(*errToReturn, err).ErrorOrNil()
	}
}
