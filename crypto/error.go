package crypto

import (
	"errors"
	"fmt"
)

// ErrInvalidSignature is returned when a signature does not verify against the claimed key.
var ErrInvalidSignature = errors.New("invalid signature")

type invalidInputsError struct {
	error
}

func (e invalidInputsError) Unwrap() error {
	return e.error
}

func invalidInputsErrorf(msg string, args ...interface{}) error {
	return &invalidInputsError{error: fmt.Errorf(msg, args...)}
}

// IsInvalidInputsError checks if the input error is of an invalidInputsError type.
// Such errors are returned when key or signature bytes are malformed.
func IsInvalidInputsError(err error) bool {
	var target *invalidInputsError
	return errors.As(err, &target)
}
