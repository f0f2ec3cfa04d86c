package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
)

// ErrStartupTimeout is returned when a component is not ready in time.
var ErrStartupTimeout = errors.New("component startup timed out")

type namedComponent struct {
	name      string
	component component.Component
}

// NodeBuilder starts named components in the order they were added and stops
// them when the process is interrupted, the context ends or a component
// throws an irrecoverable error.
type NodeBuilder struct {
	name            string
	log             zerolog.Logger
	startupTimeout  time.Duration
	shutdownTimeout time.Duration
	components      []namedComponent
	postShutdown    []func() error
}

func NewNodeBuilder(name string, log zerolog.Logger, startupTimeout time.Duration, shutdownTimeout time.Duration) *NodeBuilder {
	return &NodeBuilder{
		name:            name,
		log:             log,
		startupTimeout:  startupTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

func (nb *NodeBuilder) Component(name string, c component.Component) *NodeBuilder {
	nb.components = append(nb.components, namedComponent{name: name, component: c})
	return nb
}

// PostShutdown registers a cleanup that runs after every component is done,
// in reverse order of registration.
func (nb *NodeBuilder) PostShutdown(fn func() error) *NodeBuilder {
	nb.postShutdown = append(nb.postShutdown, fn)
	return nb
}

// Run blocks until the node was shut down. An error is returned if a
// component failed to start or threw an irrecoverable error.
func (nb *NodeBuilder) Run(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)

	var result *multierror.Error
	started := 0
	for _, c := range nb.components {
		c.component.Start(signalerCtx)
		started++
		err := nb.awaitReady(ctx, c, sig, errChan)
		if err != nil {
			result = multierror.Append(result, err)
			break
		}
	}

	if result == nil {
		nb.log.Info().Msgf("%s startup complete", nb.name)
		select {
		case <-ctx.Done():
		case <-sig:
			nb.log.Info().Msg("interrupted")
		case err := <-errChan:
			result = multierror.Append(result, fmt.Errorf("unhandled irrecoverable error: %w", err))
		}
	}

	nb.log.Info().Msgf("%s shutting down", nb.name)
	cancel()
	for i := started - 1; i >= 0; i-- {
		err := nb.awaitDone(nb.components[i], sig)
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	// a component may have thrown while stopping
	select {
	case err := <-errChan:
		result = multierror.Append(result, fmt.Errorf("unhandled irrecoverable error during shutdown: %w", err))
	default:
	}

	for i := len(nb.postShutdown) - 1; i >= 0; i-- {
		err := nb.postShutdown[i]()
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	nb.log.Info().Msgf("%s shutdown complete", nb.name)
	return result.ErrorOrNil()
}

func (nb *NodeBuilder) awaitReady(ctx context.Context, c namedComponent, sig <-chan os.Signal, errChan <-chan error) error {
	timer := time.NewTimer(nb.startupTimeout)
	defer timer.Stop()

	select {
	case <-c.component.Ready():
		nb.log.Info().Msg(c.name + " ready")
		return nil
	case <-timer.C:
		return fmt.Errorf("could not start %s: %w", c.name, ErrStartupTimeout)
	case err := <-errChan:
		return fmt.Errorf("%s failed during startup: %w", c.name, err)
	case <-sig:
		return fmt.Errorf("%s startup interrupted", c.name)
	case <-ctx.Done():
		return fmt.Errorf("%s startup aborted: %w", c.name, ctx.Err())
	}
}

func (nb *NodeBuilder) awaitDone(c namedComponent, sig <-chan os.Signal) error {
	timer := time.NewTimer(nb.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-c.component.Done():
		nb.log.Info().Msg(c.name + " shutdown complete")
		return nil
	case <-timer.C:
		return fmt.Errorf("could not stop %s in time", c.name)
	case <-sig:
		return fmt.Errorf("%s shutdown interrupted", c.name)
	}
}
