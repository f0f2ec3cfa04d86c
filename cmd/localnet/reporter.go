package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/engine/primary"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
)

// reporter periodically logs the progress of every primary.
type reporter struct {
	*component.ComponentManager
	log       zerolog.Logger
	primaries []*primary.Primary
	interval  time.Duration
}

func newReporter(log zerolog.Logger, primaries []*primary.Primary, interval time.Duration) *reporter {
	r := &reporter{
		log:       log.With().Str("component", "reporter").Logger(),
		primaries: primaries,
		interval:  interval,
	}
	r.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(r.loop).
		Build()
	return r
}

func (r *reporter) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.report()
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *reporter) report() {
	for i, p := range r.primaries {
		r.log.Info().
			Int("authority", i).
			Uint64("proposed_round", uint64(p.State().HighestProposedRound())).
			Int("dag_size", p.DAG().Size()).
			Int("suspended", p.State().NumSuspended()).
			Msg("progress")
	}
}
