package blockwaiter

import (
	"errors"
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/metrics"
)

var (
	// ErrBlockNotFound means no certificate is known for the requested digest.
	ErrBlockNotFound = errors.New("block not found")
	// ErrBatchError means the payload could not be synchronized or one of
	// the batches could not be fetched.
	ErrBatchError = errors.New("batch error")
	// ErrBatchTimeout means a batch was not returned in time.
	ErrBatchTimeout = errors.New("batch timeout")
)

// BlockError reports why a block could not be reconstructed. It wraps one of
// ErrBlockNotFound, ErrBatchError or ErrBatchTimeout.
type BlockError struct {
	BlockID narwhal.Identifier
	err     error
}

func newBlockError(blockID narwhal.Identifier, kind error, cause error) BlockError {
	if cause == nil {
		return BlockError{BlockID: blockID, err: kind}
	}
	return BlockError{BlockID: blockID, err: fmt.Errorf("%w: %v", kind, cause)}
}

func (e BlockError) Error() string {
	return fmt.Sprintf("block %x: %s", e.BlockID, e.err.Error())
}

func (e BlockError) Unwrap() error {
	return e.err
}

func IsBlockError(err error) bool {
	var e BlockError
	return errors.As(err, &e)
}

// outcome maps a block error to its metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrBlockNotFound):
		return metrics.OutcomeBlockNotFound
	case errors.Is(err, ErrBatchTimeout):
		return metrics.OutcomeBatchTimeout
	default:
		return metrics.OutcomeBatchError
	}
}
