package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/engine"
	"github.com/dagbft/narwhal/engine/primary/waiter"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/network/channels"
)

// Engine is a wrapper around Core. It queues inbound headers, votes and
// certificates, feeds them to the core from a single worker routine and
// connects the core to the network.
//
// The engine also broadcasts the headers of this node. An own header is
// queued for the core before it is sent to the peers.
type Engine struct {
	*component.ComponentManager
	log                 zerolog.Logger
	core                *Core
	notifier            engine.Notifier
	pendingOwnHeaders   *engine.FifoMessageStore
	pendingHeaders      *engine.FifoMessageStore
	pendingVotes        *engine.FifoMessageStore
	pendingCertificates *engine.FifoMessageStore
	messageHandler      *engine.MessageHandler
	peers               *network.Broadcaster
}

var (
	_ network.MessageProcessor  = (*Engine)(nil)
	_ network.HeaderBroadcaster = (*Engine)(nil)
	_ waiter.Consumer           = (*Engine)(nil)
)

// NewEngine registers the core on the header, vote and certificate channels.
func NewEngine(log zerolog.Logger, net network.Network, core *Core) (*Engine, error) {
	e := &Engine{
		log:      log.With().Str("engine", "core").Uint16("me", uint16(core.me)).Logger(),
		core:     core,
		notifier: engine.NewNotifier(),
	}

	var err error
	e.pendingOwnHeaders, err = engine.NewFifoMessageStore(core.config.HeaderQueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create own header queue: %w", err)
	}
	e.pendingHeaders, err = engine.NewFifoMessageStore(core.config.HeaderQueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create header queue: %w", err)
	}
	e.pendingVotes, err = engine.NewFifoMessageStore(core.config.VoteQueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create vote queue: %w", err)
	}
	e.pendingCertificates, err = engine.NewFifoMessageStore(core.config.CertificateQueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create certificate queue: %w", err)
	}

	e.messageHandler = engine.NewMessageHandler(
		e.log,
		e.notifier,
		engine.Pattern{
			Match: func(msg *engine.Message) bool {
				_, ok := msg.Payload.(*narwhal.Header)
				return ok
			},
			Store: e.pendingHeaders,
		},
		engine.Pattern{
			Match: func(msg *engine.Message) bool {
				_, ok := msg.Payload.(*narwhal.Vote)
				return ok
			},
			Store: e.pendingVotes,
		},
		engine.Pattern{
			Match: func(msg *engine.Message) bool {
				_, ok := msg.Payload.(*narwhal.Certificate)
				return ok
			},
			Store: e.pendingCertificates,
		},
	)

	headerCon, err := net.Register(channels.PushHeaders, e)
	if err != nil {
		return nil, fmt.Errorf("could not register on %s: %w", channels.PushHeaders, err)
	}
	e.peers = network.NewBroadcaster(headerCon, core.committee.Others(core.me))
	core.voteCon, err = net.Register(channels.PushVotes, e)
	if err != nil {
		return nil, fmt.Errorf("could not register on %s: %w", channels.PushVotes, err)
	}
	core.certificateCon, err = net.Register(channels.PushCertificates, e)
	if err != nil {
		return nil, fmt.Errorf("could not register on %s: %w", channels.PushCertificates, err)
	}

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.processMessagesLoop).
		Build()
	return e, nil
}

// BroadcastHeader queues a header of this node for the core, then sends it to
// every other authority. The core starts collecting votes for the header
// before any peer can vote for it.
func (e *Engine) BroadcastHeader(header *narwhal.Header) error {
	ok := e.pendingOwnHeaders.Put(&engine.Message{OriginID: e.core.me, Payload: header})
	if !ok {
		return fmt.Errorf("could not queue own %s: queue full", header)
	}
	e.notifier.Notify()
	return e.peers.BroadcastHeader(header)
}

// Accepted notifies whenever certificates were accepted into the DAG state.
func (e *Engine) Accepted() <-chan struct{} {
	return e.core.Accepted()
}

// Process queues a message from the network. It never blocks: a full queue
// drops the message.
func (e *Engine) Process(channel channels.Channel, originID narwhal.AuthorityIndex, message interface{}) error {
	err := e.messageHandler.Process(originID, message)
	if err != nil {
		return fmt.Errorf("unexpected message on channel %s: %w", channel, err)
	}
	return nil
}

// ResubmitHeader queues a header whose dependencies became available.
func (e *Engine) ResubmitHeader(header *narwhal.Header) {
	_ = e.messageHandler.Process(header.Author, header)
}

// ResubmitCertificate queues a certificate fetched from a peer or whose
// parents became available.
func (e *Engine) ResubmitCertificate(certificate *narwhal.Certificate) {
	_ = e.messageHandler.Process(certificate.Origin(), certificate)
}

func (e *Engine) processMessagesLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	doneSignal := ctx.Done()
	newMessageSignal := e.messageHandler.GetNotifier()
	for {
		select {
		case <-doneSignal:
			return
		case <-newMessageSignal:
			err := e.processAvailableMessages(ctx)
			if err != nil {
				ctx.Throw(err)
				return
			}
		}
	}
}

// processAvailableMessages drains the queues. Own headers go first, so that
// the votes they cause are never processed ahead of them. Certificates come
// next since they unblock headers, then votes since they complete our own
// certificate.
// No errors are expected during normal operations.
func (e *Engine) processAvailableMessages(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, ok := e.pendingOwnHeaders.Get()
		if ok {
			err := e.core.ProcessOwnHeader(ctx, msg.Payload.(*narwhal.Header))
			if err != nil {
				return fmt.Errorf("could not process own header: %w", err)
			}
			continue
		}

		msg, ok = e.pendingCertificates.Get()
		if ok {
			err := e.core.ProcessCertificate(ctx, msg.OriginID, msg.Payload.(*narwhal.Certificate))
			if err != nil {
				return fmt.Errorf("could not process certificate: %w", err)
			}
			continue
		}

		msg, ok = e.pendingVotes.Get()
		if ok {
			err := e.core.ProcessVote(msg.OriginID, msg.Payload.(*narwhal.Vote))
			if err != nil {
				return fmt.Errorf("could not process vote: %w", err)
			}
			continue
		}

		msg, ok = e.pendingHeaders.Get()
		if ok {
			err := e.core.ProcessHeader(ctx, msg.OriginID, msg.Payload.(*narwhal.Header))
			if err != nil {
				return fmt.Errorf("could not process header: %w", err)
			}
			continue
		}

		return nil
	}
}
