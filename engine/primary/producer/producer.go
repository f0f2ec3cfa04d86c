package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/ef-ds/deque"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/dagbft/narwhal/consensus/dagstate"
	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/module/trace"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/utils/logging"
)

// State decides when this node proposes and records its proposals.
type State interface {
	TryPropose() dagstate.ProposeResult
	AcceptProposal(header *narwhal.Header) error
	Flush() error
}

// Producer builds the headers of this node. It re-evaluates the proposal
// rule of the DAG state whenever certificates are accepted and at the delay
// the DAG state asks for. Batch digests sealed by the workers of this node
// are buffered until the next header references them.
//
// Every header is accepted by the local DAG state and flushed before it is
// broadcast. Failing to accept or persist an own header is fatal.
type Producer struct {
	*component.ComponentManager
	log         zerolog.Logger
	metrics     module.PrimaryMetrics
	tracer      module.Tracer
	committee   *narwhal.Committee
	me          narwhal.AuthorityIndex
	signer      crypto.Signer
	state       State
	broadcaster network.HeaderBroadcaster
	digests     <-chan narwhal.OwnBatch
	accepted    <-chan struct{}
	config      Config

	// pending holds narwhal.OwnBatch values in arrival order.
	pending deque.Deque
}

// New creates a producer. The loop stops when either the digests or the
// accepted channel is closed.
func New(
	log zerolog.Logger,
	collector module.PrimaryMetrics,
	tracer module.Tracer,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	signer crypto.Signer,
	state State,
	broadcaster network.HeaderBroadcaster,
	digests <-chan narwhal.OwnBatch,
	accepted <-chan struct{},
	opts ...OptionFunc,
) (*Producer, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.MaxHeaderDigests < 1 {
		return nil, narwhal.NewConfigurationErrorf("header must hold at least one digest, got limit %d", config.MaxHeaderDigests)
	}

	p := &Producer{
		log:         log.With().Str("engine", "producer").Uint16("me", uint16(me)).Logger(),
		metrics:     collector,
		tracer:      tracer,
		committee:   committee,
		me:          me,
		signer:      signer,
		state:       state,
		broadcaster: broadcaster,
		digests:     digests,
		accepted:    accepted,
		config:      config,
	}
	p.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(p.loop).
		Build()
	return p, nil
}

func (p *Producer) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-p.digests:
			if !ok {
				p.log.Info().Msg("digest channel closed, stopping")
				return
			}
			p.pending.PushBack(batch)
			continue
		case _, ok := <-p.accepted:
			if !ok {
				p.log.Info().Msg("acceptance channel closed, stopping")
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		result := p.state.TryPropose()
		if result.Proposal != nil {
			err := p.propose(ctx, result.Proposal)
			if err != nil {
				ctx.Throw(err)
				return
			}
		}
		timer.Reset(result.NextCheckDelay)
	}
}

// propose builds, records and broadcasts the header authorized by the
// proposal.
// No errors are expected during normal operations.
func (p *Producer) propose(ctx context.Context, proposal *dagstate.Proposal) error {
	span, ctx := p.tracer.StartSpanFromContext(ctx, trace.ProducerPropose)
	defer span.End()

	payload := p.collectPayload()
	span.SetAttributes(
		attribute.Int64("round", int64(proposal.Round)),
		attribute.Int("payload", len(payload)),
		attribute.Int("ancestors", len(proposal.Ancestors)),
	)

	// a header is never older than its ancestors
	now := narwhal.TimestampMs(time.Now().UnixMilli())
	if now < proposal.MaxAncestorTime {
		delay := time.Duration(proposal.MaxAncestorTime-now) * time.Millisecond
		p.log.Warn().
			Uint64("round", uint64(proposal.Round)).
			Dur("delay", delay).
			Msg("local clock behind ancestors, delaying proposal")
		p.metrics.ProposalDelayed(delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		now = proposal.MaxAncestorTime
	}

	header, err := narwhal.NewHeader(narwhal.UnsignedHeader{
		Author:    p.me,
		Round:     proposal.Round,
		Epoch:     p.committee.Epoch(),
		CreatedAt: now,
		Payload:   payload,
		Parents:   proposal.Ancestors,
	}, p.signer)
	if err != nil {
		return fmt.Errorf("could not build header for round %d: %w", proposal.Round, err)
	}

	err = p.state.AcceptProposal(header)
	if err != nil {
		return fmt.Errorf("could not accept own %s: %w", header, err)
	}
	err = p.state.Flush()
	if err != nil {
		return fmt.Errorf("could not persist own %s: %w", header, err)
	}

	err = p.broadcaster.BroadcastHeader(header)
	if err != nil {
		p.log.Warn().Err(err).Hex("header_id", logging.ID(header.ID)).Msg("could not broadcast header")
	}
	span.AddEvent("broadcast", otelTrace.WithAttributes(attribute.String("header_id", header.ID.String())))
	p.metrics.HeaderProposed(uint64(header.Round), len(header.Payload))

	p.log.Info().
		Hex("header_id", logging.ID(header.ID)).
		Uint64("round", uint64(header.Round)).
		Int("payload", len(header.Payload)).
		Int("parents", len(header.Parents)).
		Msg("header proposed")
	return nil
}

// collectPayload drains the digests waiting on the channel and takes up to
// MaxHeaderDigests of the buffered ones.
func (p *Producer) collectPayload() map[narwhal.Identifier]narwhal.PayloadEntry {
drain:
	for {
		select {
		case batch, ok := <-p.digests:
			if !ok {
				break drain
			}
			p.pending.PushBack(batch)
		default:
			break drain
		}
	}

	payload := make(map[narwhal.Identifier]narwhal.PayloadEntry)
	for len(payload) < p.config.MaxHeaderDigests {
		v, ok := p.pending.PopFront()
		if !ok {
			break
		}
		batch := v.(narwhal.OwnBatch)
		payload[batch.Digest] = narwhal.PayloadEntry{WorkerID: batch.WorkerID, CreatedAt: batch.CreatedAt}
	}
	return payload
}
