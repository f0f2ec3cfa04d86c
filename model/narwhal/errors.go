package narwhal

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates that a committee or component was initialized
// with invalid or inconsistent parameters.
type ConfigurationError struct {
	err error
}

func NewConfigurationErrorf(msg string, args ...interface{}) error {
	return ConfigurationError{fmt.Errorf(msg, args...)}
}

func (e ConfigurationError) Error() string { return e.err.Error() }
func (e ConfigurationError) Unwrap() error { return e.err }

// IsConfigurationError returns whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var e ConfigurationError
	return errors.As(err, &e)
}

// UnknownAuthorityError indicates a message from an authority that is not part
// of the committee, or that holds no stake.
type UnknownAuthorityError struct {
	Authority uint64
}

func (e UnknownAuthorityError) Error() string {
	return fmt.Sprintf("unknown authority %d", e.Authority)
}

// IsUnknownAuthorityError returns whether an error is UnknownAuthorityError
func IsUnknownAuthorityError(err error) bool {
	var e UnknownAuthorityError
	return errors.As(err, &e)
}

// UnknownWorkerError indicates a payload entry naming a worker the author does not run.
type UnknownWorkerError struct {
	Authority AuthorityIndex
	Worker    WorkerID
}

func (e UnknownWorkerError) Error() string {
	return fmt.Sprintf("authority %d has no worker %d", e.Authority, e.Worker)
}

// IsUnknownWorkerError returns whether an error is UnknownWorkerError
func IsUnknownWorkerError(err error) bool {
	var e UnknownWorkerError
	return errors.As(err, &e)
}

// InvalidEpochError indicates a message for a different epoch than the committee's.
type InvalidEpochError struct {
	Expected Epoch
	Received Epoch
}

func (e InvalidEpochError) Error() string {
	return fmt.Sprintf("invalid epoch: expected %d, received %d", e.Expected, e.Received)
}

// IsInvalidEpochError returns whether an error is InvalidEpochError
func IsInvalidEpochError(err error) bool {
	var e InvalidEpochError
	return errors.As(err, &e)
}

// InvalidHeaderError indicates a malformed header, e.g. one whose id does not
// match its content.
type InvalidHeaderError struct {
	HeaderID Identifier
	Round    Round
	Err      error
}

func NewInvalidHeaderErrorf(header *Header, msg string, args ...interface{}) error {
	return InvalidHeaderError{
		HeaderID: header.ID,
		Round:    header.Round,
		Err:      fmt.Errorf(msg, args...),
	}
}

func (e InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid header %x at round %d: %s", e.HeaderID, e.Round, e.Err.Error())
}

func (e InvalidHeaderError) Unwrap() error {
	return e.Err
}

// IsInvalidHeaderError returns whether an error is InvalidHeaderError
func IsInvalidHeaderError(err error) bool {
	var e InvalidHeaderError
	return errors.As(err, &e)
}

// AuthorityReuseError indicates that a certificate carries more than one vote
// from the same authority.
type AuthorityReuseError struct {
	Authority AuthorityIndex
}

func (e AuthorityReuseError) Error() string {
	return fmt.Sprintf("authority %d appears more than once", e.Authority)
}

// IsAuthorityReuseError returns whether an error is AuthorityReuseError
func IsAuthorityReuseError(err error) bool {
	var e AuthorityReuseError
	return errors.As(err, &e)
}

// QuorumNotReachedError indicates that the voters of a certificate hold less
// than the quorum threshold.
type QuorumNotReachedError struct {
	Stake     Stake
	Threshold Stake
}

func (e QuorumNotReachedError) Error() string {
	return fmt.Sprintf("quorum not reached: stake %d below threshold %d", e.Stake, e.Threshold)
}

// IsQuorumNotReachedError returns whether an error is QuorumNotReachedError
func IsQuorumNotReachedError(err error) bool {
	var e QuorumNotReachedError
	return errors.As(err, &e)
}

// InvalidSignatureError indicates that a header or vote signature does not verify.
type InvalidSignatureError struct {
	Err error
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature: %s", e.Err.Error())
}

func (e InvalidSignatureError) Unwrap() error {
	return e.Err
}

// IsInvalidSignatureError returns whether an error is InvalidSignatureError
func IsInvalidSignatureError(err error) bool {
	var e InvalidSignatureError
	return errors.As(err, &e)
}

// IsVerificationError returns true for every error that rejects a message as
// invalid, as opposed to an unexpected local failure.
func IsVerificationError(err error) bool {
	return IsUnknownAuthorityError(err) ||
		IsUnknownWorkerError(err) ||
		IsInvalidEpochError(err) ||
		IsInvalidHeaderError(err) ||
		IsAuthorityReuseError(err) ||
		IsQuorumNotReachedError(err) ||
		IsInvalidSignatureError(err)
}
