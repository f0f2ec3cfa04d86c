package engine

import (
	"errors"
)

// IncompatibleInputTypeError indicates that the input has an incompatible type
var IncompatibleInputTypeError = errors.New("incompatible input type")
