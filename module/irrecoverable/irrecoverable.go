package irrecoverable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
)

// Signaler sends the error out.
type Signaler struct {
	errChan chan error
}

func NewSignaler() (*Signaler, <-chan error) {
	errChan := make(chan error, 1)
	return &Signaler{errChan: errChan}, errChan
}

// Throw is a narrow drop-in replacement for panic, log.Fatal, log.Panic, etc
// anywhere there's something connected to the error channel. Only the first
// error is delivered; Throw never returns.
func (s *Signaler) Throw(err error) {
	select {
	case s.errChan <- err:
	default:
	}
	runtime.Goexit()
}

// SignalerContext is a context.Context that can also throw irrecoverable errors.
type SignalerContext interface {
	context.Context
	Throw(err error) // delegates to the signaler
	sealed()         // private, to constrain builder to using WithSignaler
}

type signalerCtx struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler is the One True Way of getting a SignalerContext.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return signalerCtx{parent, sig}, errChan
}

// Throw can be a drop-in replacement anywhere we have a context.Context likely
// to support irrecoverables.
func Throw(ctx context.Context, err error) {
	signalerAbleContext, ok := ctx.(SignalerContext)
	if ok {
		signalerAbleContext.Throw(err)
	}
	log.Fatalf("irrecoverable error signaler not found for context, unhandled irrecoverable error: %v", err)
}

// exception marks errors that must never occur during normal operation, such
// as a corrupted database value.
type exception struct {
	err error
}

func (e exception) Error() string { return e.err.Error() }
func (e exception) Unwrap() error { return e.err }

func NewException(err error) error {
	return exception{err: err}
}

func NewExceptionf(msg string, args ...interface{}) error {
	return exception{err: fmt.Errorf(msg, args...)}
}

// IsException returns whether err is or wraps an exception.
func IsException(err error) bool {
	var e exception
	return errors.As(err, &e)
}
