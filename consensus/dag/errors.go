package dag

import (
	"errors"
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
)

// MissingParentError indicates that a vertex references a parent that was never
// inserted into the DAG.
type MissingParentError struct {
	VertexID narwhal.Identifier
	ParentID narwhal.Identifier
}

func (e MissingParentError) Error() string {
	return fmt.Sprintf("vertex %x references unknown parent %x", e.VertexID, e.ParentID)
}

// IsMissingParentError returns whether an error is MissingParentError
func IsMissingParentError(err error) bool {
	var e MissingParentError
	return errors.As(err, &e)
}

// UnknownVertexError indicates that no vertex with the given identifier is known.
type UnknownVertexError struct {
	VertexID narwhal.Identifier
}

func (e UnknownVertexError) Error() string {
	return fmt.Sprintf("unknown vertex %x", e.VertexID)
}

// IsUnknownVertexError returns whether an error is UnknownVertexError
func IsUnknownVertexError(err error) bool {
	var e UnknownVertexError
	return errors.As(err, &e)
}
