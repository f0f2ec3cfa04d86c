package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned by the storage layer for missing keys, whatever
	// the backend's own not-found error is.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")
	ErrDataMismatch  = errors.New("data for key is different")
)
