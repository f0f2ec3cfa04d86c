package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/consensus/dag"
	"github.com/dagbft/narwhal/consensus/dagstate"
	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/engine"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// Synchronizer resolves the dependencies of headers and certificates.
type Synchronizer interface {
	MissingPayload(ctx context.Context, header *narwhal.Header) (bool, error)
	GetParents(ctx context.Context, header *narwhal.Header) ([]*narwhal.Certificate, error)
	CheckParents(certificate *narwhal.Certificate) (bool, error)
}

// Core implements the certification protocol of one primary. It votes for
// valid headers, turns the votes for its own headers into certificates and
// adds certificates to the DAG and the DAG state.
//
// Messages that fail verification are dropped and logged. All returned errors
// are fatal.
//
// Core is not concurrency safe. The Engine feeds it from a single routine.
type Core struct {
	log          zerolog.Logger
	metrics      module.PrimaryMetrics
	committee    *narwhal.Committee
	me           narwhal.AuthorityIndex
	signer       crypto.Signer
	headers      storage.Headers
	certificates storage.Certificates
	voteDigests  storage.VoteDigests
	sync         Synchronizer
	dag          *dag.DAG
	state        *dagstate.DagState
	config       Config
	accepted     engine.Notifier

	voteCon        network.Conduit
	certificateCon network.Conduit

	// aggregator collects the votes for the latest header of this node.
	aggregator   *VotesAggregator
	highestRound narwhal.Round
	gcRound      narwhal.Round
	// byRound holds the certificates above the garbage collection round.
	byRound map[narwhal.Round][]narwhal.Identifier
}

func NewCore(
	log zerolog.Logger,
	collector module.PrimaryMetrics,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	signer crypto.Signer,
	headers storage.Headers,
	certificates storage.Certificates,
	voteDigests storage.VoteDigests,
	sync Synchronizer,
	certificateDAG *dag.DAG,
	state *dagstate.DagState,
	opts ...OptionFunc,
) (*Core, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.GCDepth < 1 {
		return nil, narwhal.NewConfigurationErrorf("garbage collection depth must be positive")
	}

	for _, genesis := range committee.Genesis() {
		err := certificateDAG.Insert(dag.ToCertificateContainer(genesis))
		if err != nil {
			return nil, fmt.Errorf("could not insert genesis certificate: %w", err)
		}
	}

	return &Core{
		log:          log.With().Str("engine", "core").Uint16("me", uint16(me)).Logger(),
		metrics:      collector,
		committee:    committee,
		me:           me,
		signer:       signer,
		headers:      headers,
		certificates: certificates,
		voteDigests:  voteDigests,
		sync:         sync,
		dag:          certificateDAG,
		state:        state,
		config:       config,
		accepted:     engine.NewNotifier(),
		byRound:      make(map[narwhal.Round][]narwhal.Identifier),
	}, nil
}

// Accepted notifies whenever certificates were accepted into the DAG state.
func (c *Core) Accepted() <-chan struct{} {
	return c.accepted.Channel()
}

// ProcessHeader votes for the header if it is valid, its parents and payload
// are available and this node did not vote for another header of the same
// author and round.
// No errors are expected during normal operations.
func (c *Core) ProcessHeader(ctx context.Context, originID narwhal.AuthorityIndex, header *narwhal.Header) error {
	log := c.log.With().
		Hex("header_id", logging.ID(header.ID)).
		Uint16("author", uint16(header.Author)).
		Uint16("origin_id", uint16(originID)).
		Uint64("round", uint64(header.Round)).
		Logger()

	if header.Round == 0 {
		return c.reject(log, metrics.KindHeader, narwhal.NewInvalidHeaderErrorf(header, "headers of round 0 are genesis only"))
	}
	if header.Round <= c.gcRound {
		log.Debug().Uint64("gc_round", uint64(c.gcRound)).Msg("header below garbage collection round, dropping")
		return nil
	}
	// own headers enter through ProcessOwnHeader
	if header.Author == c.me && (c.aggregator == nil || c.aggregator.Header().ID != header.ID) {
		log.Debug().Msg("own header is not collecting votes, dropping")
		return nil
	}
	err := header.Verify(c.committee)
	if err != nil {
		return c.reject(log, metrics.KindHeader, err)
	}

	parents, err := c.sync.GetParents(ctx, header)
	if err != nil {
		return fmt.Errorf("could not get parents of %s: %w", header, err)
	}
	if len(parents) == 0 {
		log.Debug().Msg("header suspended until its parents arrive")
		return nil
	}
	err = c.checkParents(header, parents)
	if err != nil {
		return c.reject(log, metrics.KindHeader, err)
	}

	missing, err := c.sync.MissingPayload(ctx, header)
	if err != nil {
		return fmt.Errorf("could not check payload of %s: %w", header, err)
	}
	if missing {
		log.Debug().Msg("header suspended until its payload arrives")
		return nil
	}

	err = c.headers.Store(header)
	if err != nil {
		return fmt.Errorf("could not store %s: %w", header, err)
	}

	return c.vote(log, header)
}

// ProcessOwnHeader starts collecting votes for a header of this node, then
// processes it like a header of any other authority. It must be called before
// the header is sent to the peers, so that no vote for it is dropped.
// No errors are expected during normal operations.
func (c *Core) ProcessOwnHeader(ctx context.Context, header *narwhal.Header) error {
	if header.Author != c.me {
		return fmt.Errorf("%s is not authored by this node", header)
	}
	if c.aggregator != nil && header.Round <= c.aggregator.Header().Round {
		return fmt.Errorf("own %s does not follow round %d", header, c.aggregator.Header().Round)
	}
	c.aggregator = NewVotesAggregator(c.committee, header)
	return c.ProcessHeader(ctx, c.me, header)
}

// checkParents enforces the parent rule: at most one parent per authority,
// all parents from earlier rounds and quorum stake from the previous round.
func (c *Core) checkParents(header *narwhal.Header, parents []*narwhal.Certificate) error {
	origins := make(map[narwhal.AuthorityIndex]struct{}, len(parents))
	var stake narwhal.Stake
	for _, parent := range parents {
		if parent.Round() >= header.Round {
			return narwhal.NewInvalidHeaderErrorf(header, "parent %x of round %d is not from an earlier round", parent.ID(), parent.Round())
		}
		if _, ok := origins[parent.Origin()]; ok {
			return narwhal.NewInvalidHeaderErrorf(header, "more than one parent from authority %d", parent.Origin())
		}
		origins[parent.Origin()] = struct{}{}
		if parent.Round()+1 == header.Round {
			stake += c.committee.Stake(parent.Origin())
		}
	}
	if !c.committee.ReachedQuorum(stake) {
		return narwhal.NewInvalidHeaderErrorf(header, "parents of round %d hold stake %d below quorum %d", header.Round-1, stake, c.committee.QuorumThreshold())
	}
	return nil
}

// vote signs the header unless this node voted for a different header of the
// same author and round, or for a later round. The vote is recorded before it
// is sent.
func (c *Core) vote(log zerolog.Logger, header *narwhal.Header) error {
	last, err := c.voteDigests.ByOrigin(header.Author)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("could not get last vote for authority %d: %w", header.Author, err)
	case last.Round > header.Round:
		log.Debug().Uint64("voted_round", uint64(last.Round)).Msg("already voted for a later round of the author")
		return nil
	case last.Round == header.Round && last.HeaderID != header.ID:
		log.Warn().Hex("voted_header_id", logging.ID(last.HeaderID)).Msg("author equivocated, not voting")
		c.metrics.MessageRejected(metrics.KindHeader)
		return nil
	}

	vote, err := narwhal.NewVote(header, c.me, c.signer)
	if err != nil {
		return fmt.Errorf("could not vote for %s: %w", header, err)
	}
	err = c.voteDigests.Store(header.Author, storage.LastVote{Round: header.Round, HeaderID: header.ID})
	if err != nil {
		return fmt.Errorf("could not record vote for %s: %w", header, err)
	}
	err = c.voteCon.Unicast(vote, header.Author)
	if err != nil {
		log.Warn().Err(err).Msg("could not send vote")
		return nil
	}
	c.metrics.HeaderVoted()
	log.Debug().Msg("voted for header")
	return nil
}

// ProcessVote adds a vote for the latest header of this node. The certificate
// is sent to every authority once the votes reach quorum.
// No errors are expected during normal operations.
func (c *Core) ProcessVote(originID narwhal.AuthorityIndex, vote *narwhal.Vote) error {
	log := c.log.With().
		Hex("header_id", logging.ID(vote.HeaderID)).
		Uint16("voter", uint16(vote.Author)).
		Uint16("origin_id", uint16(originID)).
		Uint64("round", uint64(vote.Round)).
		Logger()

	if c.aggregator == nil {
		log.Debug().Msg("no own header to collect votes for, dropping vote")
		return nil
	}
	header := c.aggregator.Header()
	if vote.HeaderID != header.ID || vote.Origin != c.me || vote.Round != header.Round {
		log.Debug().Msg("vote is not for our latest header, dropping")
		return nil
	}
	if vote.Author != originID {
		return c.reject(log, metrics.KindVote, fmt.Errorf("vote by %d relayed by %d", vote.Author, originID))
	}
	err := vote.Verify(c.committee)
	if err != nil {
		return c.reject(log, metrics.KindVote, err)
	}

	cert, err := c.aggregator.Append(vote)
	if narwhal.IsAuthorityReuseError(err) {
		return c.reject(log, metrics.KindVote, err)
	}
	if err != nil {
		return fmt.Errorf("could not aggregate vote: %w", err)
	}
	if cert == nil {
		return nil
	}

	c.metrics.CertificateCreated(uint64(cert.Round()))
	log.Info().Hex("certificate_id", logging.ID(cert.ID())).Int("votes", len(cert.Votes)).Msg("header certified")
	err = c.certificateCon.Publish(cert, c.committee.Indices()...)
	if err != nil {
		log.Warn().Err(err).Msg("could not broadcast certificate")
	}
	return nil
}

// ProcessCertificate stores a valid certificate whose parents are known and
// adds it to the DAG and the DAG state.
// No errors are expected during normal operations.
func (c *Core) ProcessCertificate(ctx context.Context, originID narwhal.AuthorityIndex, cert *narwhal.Certificate) error {
	if cert.Header == nil {
		c.log.Warn().Uint16("origin_id", uint16(originID)).Msg("certificate without header, dropping")
		c.metrics.MessageRejected(metrics.KindCertificate)
		return nil
	}
	id := cert.ID()
	log := c.log.With().
		Hex("certificate_id", logging.ID(id)).
		Uint16("origin", uint16(cert.Origin())).
		Uint16("origin_id", uint16(originID)).
		Uint64("round", uint64(cert.Round())).
		Logger()

	if c.dag.Contains(id) {
		return nil
	}
	err := cert.Verify(c.committee)
	if err != nil {
		return c.reject(log, metrics.KindCertificate, err)
	}

	ok, err := c.sync.CheckParents(cert)
	if err != nil {
		return fmt.Errorf("could not check parents of %s: %w", cert, err)
	}
	if !ok {
		log.Debug().Msg("certificate suspended until its parents arrive")
		return nil
	}

	// the header index serves ancestor lookups of the dag state after restarts
	err = c.headers.Store(cert.Header)
	if err != nil {
		return fmt.Errorf("could not store header of %s: %w", cert, err)
	}
	err = c.certificates.Store(cert)
	if err != nil {
		return fmt.Errorf("could not store %s: %w", cert, err)
	}

	omitted := c.dag.InsertAvailable(dag.ToCertificateContainer(cert))
	if len(omitted) > 0 {
		log.Debug().Strs("omitted_parents", logging.IDs(omitted)).Msg("inserted certificate without parents that are not in the dag")
	}

	accepted, err := c.state.TryAccept([]*narwhal.Certificate{cert})
	if err != nil {
		return fmt.Errorf("could not accept %s: %w", cert, err)
	}
	if accepted > 0 {
		c.accepted.Notify()
	}
	c.metrics.CertificateAccepted(uint64(cert.Round()))
	log.Debug().Int("accepted", accepted).Msg("certificate processed")

	return c.collect(cert)
}

// collect moves the garbage collection round along with the highest round
// and marks the certificates below it compressible. The path of the new
// certificate is compressed right away.
func (c *Core) collect(cert *narwhal.Certificate) error {
	id := cert.ID()
	round := cert.Round()
	if round > c.gcRound {
		c.byRound[round] = append(c.byRound[round], id)
	} else {
		c.dag.MakeCompressible(id)
	}

	if round > c.highestRound {
		c.highestRound = round
		if uint64(round) > c.config.GCDepth {
			gcRound := round - narwhal.Round(c.config.GCDepth)
			for r, ids := range c.byRound {
				if r > gcRound {
					continue
				}
				for _, old := range ids {
					c.dag.MakeCompressible(old)
				}
				delete(c.byRound, r)
			}
			c.gcRound = gcRound
		}
	}

	err := c.dag.CompressPath(id)
	if err != nil {
		return fmt.Errorf("could not compress path of %s: %w", cert, err)
	}
	return nil
}

// reject drops a message that failed verification.
func (c *Core) reject(log zerolog.Logger, kind string, err error) error {
	c.metrics.MessageRejected(kind)
	log.Warn().Err(err).Str("kind", kind).Msg("rejecting invalid message")
	return nil
}
