package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/unittest"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func worker(r *recorder, name string, readyAfter time.Duration, fail error) component.Component {
	return component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			r.add("start " + name)
			select {
			case <-time.After(readyAfter):
			case <-ctx.Done():
				return
			}
			ready()
			if fail != nil {
				ctx.Throw(fail)
				return
			}
			<-ctx.Done()
			r.add("stop " + name)
		}).
		Build()
}

func TestNodeBuilder_Run(t *testing.T) {
	r := &recorder{}
	builder := NewNodeBuilder("test", unittest.Logger(), time.Second, time.Second).
		Component("first", worker(r, "first", 0, nil)).
		Component("second", worker(r, "second", 10*time.Millisecond, nil)).
		PostShutdown(func() error {
			r.add("closed")
			return nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, builder.Run(ctx))

	events := r.list()
	require.Len(t, events, 5)
	assert.Equal(t, []string{"start first", "start second"}, events[:2])
	assert.ElementsMatch(t, []string{"stop first", "stop second"}, events[2:4])
	assert.Equal(t, "closed", events[4])
}

func TestNodeBuilder_Failures(t *testing.T) {
	t.Run("irrecoverable error", func(t *testing.T) {
		r := &recorder{}
		fatal := errors.New("fatal")
		closed := false
		builder := NewNodeBuilder("test", unittest.Logger(), time.Second, time.Second).
			Component("healthy", worker(r, "healthy", 0, nil)).
			Component("failing", worker(r, "failing", 10*time.Millisecond, fatal)).
			PostShutdown(func() error {
				closed = true
				return nil
			})

		var err error
		unittest.RequireReturnsBefore(t, func() {
			err = builder.Run(context.Background())
		}, 2*time.Second, "node did not stop after irrecoverable error")
		assert.ErrorIs(t, err, fatal)
		assert.True(t, closed)
		assert.Contains(t, r.list(), "stop healthy")
	})

	t.Run("startup timeout", func(t *testing.T) {
		r := &recorder{}
		builder := NewNodeBuilder("test", unittest.Logger(), 20*time.Millisecond, time.Second).
			Component("slow", worker(r, "slow", time.Hour, nil)).
			Component("never", worker(r, "never", 0, nil))

		err := builder.Run(context.Background())
		assert.ErrorIs(t, err, ErrStartupTimeout)
		assert.Equal(t, []string{"start slow"}, r.list())
	})

	t.Run("post shutdown errors are reported", func(t *testing.T) {
		closeErr := errors.New("close failed")
		builder := NewNodeBuilder("test", unittest.Logger(), time.Second, time.Second).
			PostShutdown(func() error { return closeErr })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, builder.Run(ctx), closeErr)
	})
}

func TestOpenDB(t *testing.T) {
	for _, engine := range []string{storage.EngineBadger, storage.EnginePebble} {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			db, closeDB, err := OpenDB(engine, dir)
			require.NoError(t, err)
			require.NotNil(t, db)
			require.NoError(t, closeDB())

			// reopening works, switching engines does not
			_, closeDB, err = OpenDB(engine, dir)
			require.NoError(t, err)
			require.NoError(t, closeDB())
			other := storage.EnginePebble
			if engine == storage.EnginePebble {
				other = storage.EngineBadger
			}
			_, _, err = OpenDB(other, dir)
			assert.ErrorIs(t, err, storage.ErrEngineMismatch)
		})
	}

	_, _, err := OpenDB("rocks", t.TempDir())
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	log, err := InitLogger("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "debug", log.GetLevel().String())

	_, err = InitLogger("loud")
	assert.Error(t, err)
}
