package primary

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/consensus/dag"
	"github.com/dagbft/narwhal/consensus/dagstate"
	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/engine/primary/blockwaiter"
	"github.com/dagbft/narwhal/engine/primary/core"
	"github.com/dagbft/narwhal/engine/primary/producer"
	"github.com/dagbft/narwhal/engine/primary/synchronizer"
	"github.com/dagbft/narwhal/engine/primary/waiter"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/module/util"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage/store"
)

// Network is what a primary needs from the network layer.
type Network interface {
	network.Network
	network.WorkerClient
	network.CertificateFetcher
}

// Options carries the options of the components of a primary.
type Options struct {
	DagState     []dagstate.OptionFunc
	Synchronizer []synchronizer.OptionFunc
	Waiter       []waiter.OptionFunc
	Core         []core.OptionFunc
	Producer     []producer.OptionFunc
	BlockWaiter  []blockwaiter.OptionFunc
}

// Primary is one authority of the mempool: it proposes headers referencing
// the batches of its workers, certifies the headers of all authorities and
// serves the blocks of certificates it knows.
type Primary struct {
	*component.ComponentManager
	log               zerolog.Logger
	me                narwhal.AuthorityIndex
	stores            *store.All
	dag               *dag.DAG
	state             *dagstate.DagState
	headerWaiter      *waiter.HeaderWaiter
	certificateWaiter *waiter.CertificateWaiter
	engine            *core.Engine
	producer          *producer.Producer
	blocks            *blockwaiter.BlockWaiter
}

// New assembles a primary on the stores of this node. Batch digests sealed
// by the workers of this node arrive on digests.
func New(
	log zerolog.Logger,
	collector module.PrimaryMetrics,
	tracer module.Tracer,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	signer crypto.Signer,
	stores *store.All,
	net Network,
	digests <-chan narwhal.OwnBatch,
	opts Options,
) (*Primary, error) {
	log = log.With().Uint16("authority", uint16(me)).Logger()
	certificateDAG := dag.New()

	state, err := dagstate.New(log, collector, committee, me, stores.Headers, stores.Certificates, opts.DagState...)
	if err != nil {
		return nil, fmt.Errorf("could not create dag state: %w", err)
	}

	headerWaiter, err := waiter.NewHeaderWaiter(log, committee, net, net, stores.Payloads, stores.Certificates, opts.Waiter...)
	if err != nil {
		return nil, fmt.Errorf("could not create header waiter: %w", err)
	}
	certificateWaiter, err := waiter.NewCertificateWaiter(log, committee, net, stores.Certificates, opts.Waiter...)
	if err != nil {
		return nil, fmt.Errorf("could not create certificate waiter: %w", err)
	}

	sync, err := synchronizer.New(log, tracer, collector, committee, me, stores.Certificates, stores.Payloads,
		certificateDAG, headerWaiter, certificateWaiter, opts.Synchronizer...)
	if err != nil {
		return nil, fmt.Errorf("could not create synchronizer: %w", err)
	}

	c, err := core.NewCore(log, collector, committee, me, signer, stores.Headers, stores.Certificates, stores.VoteDigests,
		sync, certificateDAG, state, opts.Core...)
	if err != nil {
		return nil, fmt.Errorf("could not create core: %w", err)
	}
	engine, err := core.NewEngine(log, net, c)
	if err != nil {
		return nil, fmt.Errorf("could not create core engine: %w", err)
	}
	headerWaiter.WithConsumer(engine)
	certificateWaiter.WithConsumer(engine)

	prod, err := producer.New(log, collector, tracer, committee, me, signer, state, engine,
		digests, engine.Accepted(), opts.Producer...)
	if err != nil {
		return nil, fmt.Errorf("could not create producer: %w", err)
	}

	blockSync, err := synchronizer.NewBlockSynchronizer(log, stores.Payloads, net, opts.Synchronizer...)
	if err != nil {
		return nil, fmt.Errorf("could not create block synchronizer: %w", err)
	}
	blocks, err := blockwaiter.New(log, collector, tracer, committee, me, stores.Certificates, blockSync, net, opts.BlockWaiter...)
	if err != nil {
		return nil, fmt.Errorf("could not create block waiter: %w", err)
	}

	p := &Primary{
		log:               log.With().Str("component", "primary").Logger(),
		me:                me,
		stores:            stores,
		dag:               certificateDAG,
		state:             state,
		headerWaiter:      headerWaiter,
		certificateWaiter: certificateWaiter,
		engine:            engine,
		producer:          prod,
		blocks:            blocks,
	}
	p.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(p.run).
		Build()
	return p, nil
}

// run starts the engines. The producer starts last, once the engines that
// process its headers are running.
func (p *Primary) run(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	engines := []module.ReadyDoneAware{p.headerWaiter, p.certificateWaiter, p.engine}
	p.headerWaiter.Start(ctx)
	p.certificateWaiter.Start(ctx)
	p.engine.Start(ctx)
	err := util.WaitClosed(ctx, util.AllReady(engines...))
	if err != nil {
		<-util.AllDone(engines...)
		return
	}

	p.producer.Start(ctx)
	engines = append(engines, p.producer)
	err = util.WaitClosed(ctx, p.producer.Ready())
	if err != nil {
		<-util.AllDone(engines...)
		return
	}
	ready()
	p.log.Info().Msg("primary started")

	<-util.AllDone(engines...)
	p.log.Info().Msg("primary stopped")
}

func (p *Primary) Stores() *store.All {
	return p.stores
}

// DAG is the certificate DAG of this node.
func (p *Primary) DAG() *dag.DAG {
	return p.dag
}

func (p *Primary) State() *dagstate.DagState {
	return p.state
}

func (p *Primary) BlockWaiter() *blockwaiter.BlockWaiter {
	return p.blocks
}
