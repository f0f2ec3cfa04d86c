package dagstate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// Proposal authorizes a new header of this node.
type Proposal struct {
	Round narwhal.Round
	// Ancestors are certificate digests, at most one per authority.
	Ancestors []narwhal.Identifier
	// MaxAncestorTime is the latest creation time among the ancestors.
	MaxAncestorTime narwhal.TimestampMs
}

// ProposeResult is the answer of TryPropose. Proposal is nil if this node
// should not propose yet. NextCheckDelay tells the proposer when to ask again
// if no other event arrives.
type ProposeResult struct {
	Proposal       *Proposal
	NextCheckDelay time.Duration
}

type entry struct {
	key       narwhal.Identifier
	header    *narwhal.Header
	certified bool
}

type roundInfo struct {
	authors    map[narwhal.AuthorityIndex]struct{}
	stake      narwhal.Stake
	quorumTime time.Time
}

// suspendedHeader is a header waiting for ancestors. A placeholder without
// header only records the headers waiting for it.
type suspendedHeader struct {
	header     *narwhal.Header
	certified  bool
	missing    map[narwhal.Identifier]struct{}
	dependents map[narwhal.Identifier]struct{}
}

// DagState tracks the headers accepted by this node. A header is accepted once
// all its ancestors are accepted, otherwise it is suspended until they are.
// Headers are keyed by the digest of the certificate they form.
//
// Certified headers drive proposals: a round counts towards the proposal rule
// only with the stake of certified headers, and ancestors of a new proposal
// are certified headers. This node's own proposals are accepted uncertified
// and become certified when their certificate is accepted.
//
// DagState is safe for concurrent use.
type DagState struct {
	log          zerolog.Logger
	metrics      module.PrimaryMetrics
	committee    *narwhal.Committee
	me           narwhal.AuthorityIndex
	headers      storage.Headers
	certificates storage.Certificates
	cfg          Config

	lock      sync.Mutex
	entries   map[narwhal.Identifier]*entry
	byAuthor  [][]*entry // per author, ascending round
	rounds    map[narwhal.Round]*roundInfo
	suspended map[narwhal.Identifier]*suspendedHeader
	// suspendedCount counts suspended headers per author.
	suspendedCount []int
	// persisted is the highest round per author written by Flush.
	persisted []narwhal.Round
	// evicted is the highest round per author dropped from memory. Evicted
	// headers were accepted and flushed before.
	evicted []narwhal.Round

	lowestRound          narwhal.Round
	highestRound         narwhal.Round
	highestProposedRound narwhal.Round
}

// New creates the DAG state with the genesis headers and recovers the headers
// flushed before a restart.
func New(
	log zerolog.Logger,
	collector module.PrimaryMetrics,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	headers storage.Headers,
	certificates storage.Certificates,
	opts ...OptionFunc,
) (*DagState, error) {
	cfg := DefaultConfig()
	for _, apply := range opts {
		apply(cfg)
	}
	if cfg.HeadersPerAuthority < 1 || cfg.RoundsCached < 1 {
		return nil, narwhal.NewConfigurationErrorf("dag state cache limits must be positive (%d headers, %d rounds)", cfg.HeadersPerAuthority, cfg.RoundsCached)
	}

	size := committee.Size()
	s := &DagState{
		log:            log.With().Str("component", "dag_state").Logger(),
		metrics:        collector,
		committee:      committee,
		me:             me,
		headers:        headers,
		certificates:   certificates,
		cfg:            *cfg,
		entries:        make(map[narwhal.Identifier]*entry),
		byAuthor:       make([][]*entry, size),
		rounds:         make(map[narwhal.Round]*roundInfo),
		suspended:      make(map[narwhal.Identifier]*suspendedHeader),
		suspendedCount: make([]int, size),
		persisted:      make([]narwhal.Round, size),
		evicted:        make([]narwhal.Round, size),
	}

	for _, genesis := range committee.Genesis() {
		s.accept(genesis.ID(), genesis.Header, true)
	}

	err := s.recover()
	if err != nil {
		return nil, fmt.Errorf("could not recover dag state: %w", err)
	}
	return s, nil
}

// recover accepts the most recent flushed headers of every author. Headers of
// peers are recovered only if they were certified.
func (s *DagState) recover() error {
	var recovered []*narwhal.Header
	for _, author := range s.committee.Indices() {
		headers, err := s.headers.ByAuthorAfterRound(author, 0)
		if err != nil {
			return fmt.Errorf("could not read headers of authority %d: %w", author, err)
		}

		kept := make([]*narwhal.Header, 0, len(headers))
		for _, header := range headers {
			if author != s.me {
				certified, err := s.certificates.Exists(certificateKey(header))
				if err != nil {
					return fmt.Errorf("could not check certificate of %s: %w", header, err)
				}
				if !certified {
					continue
				}
			}
			kept = append(kept, header)
		}
		if len(kept) > s.cfg.HeadersPerAuthority {
			dropped := kept[len(kept)-s.cfg.HeadersPerAuthority-1]
			s.evicted[author] = dropped.Round
			kept = kept[len(kept)-s.cfg.HeadersPerAuthority:]
		}
		if len(kept) > 0 {
			s.persisted[author] = kept[len(kept)-1].Round
		}
		recovered = append(recovered, kept...)
	}

	sort.SliceStable(recovered, func(i, j int) bool {
		return recovered[i].Round < recovered[j].Round
	})
	for _, header := range recovered {
		key := certificateKey(header)
		certified := true
		if header.Author == s.me {
			var err error
			certified, err = s.certificates.Exists(key)
			if err != nil {
				return fmt.Errorf("could not check certificate of %s: %w", header, err)
			}
		}
		_, err := s.tryAccept(header, certified)
		if err != nil {
			return err
		}
	}

	s.highestProposedRound = s.persisted[s.me]
	s.log.Info().
		Int("headers", len(recovered)).
		Uint64("highest_proposed_round", uint64(s.highestProposedRound)).
		Int("suspended", s.numSuspended()).
		Msg("dag state recovered")
	return nil
}

// TryAccept accepts the headers of the given certificates. Headers with
// unknown ancestors are suspended and accepted together with their last
// missing ancestor. Returns the number of headers that became accepted or
// certified, including previously suspended ones.
// No errors are expected during normal operations.
func (s *DagState) TryAccept(certificates []*narwhal.Certificate) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	accepted := 0
	for _, cert := range certificates {
		n, err := s.tryAccept(cert.Header, true)
		if err != nil {
			return accepted, err
		}
		accepted += n
	}
	s.metrics.CurrentlySuspended(s.numSuspended())
	return accepted, nil
}

// AcceptProposal accepts a header just built by this node. Its ancestors come
// from TryPropose, so they must be known.
// No errors are expected during normal operations.
func (s *DagState) AcceptProposal(header *narwhal.Header) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if header.Author != s.me {
		return fmt.Errorf("proposal %s is not authored by this node", header)
	}
	n, err := s.tryAccept(header, false)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("own proposal %s was not accepted", header)
	}
	return nil
}

func (s *DagState) tryAccept(header *narwhal.Header, certified bool) (int, error) {
	key := certificateKey(header)

	if e, ok := s.entries[key]; ok {
		if certified && !e.certified {
			e.certified = true
			s.countRound(e)
			return 1, nil
		}
		return 0, nil
	}
	if sus, ok := s.suspended[key]; ok && sus.header != nil {
		sus.certified = sus.certified || certified
		return 0, nil
	}

	missing, err := s.missingAncestors(header)
	if err != nil {
		return 0, err
	}
	if len(missing) > 0 {
		s.suspend(key, header, certified, missing)
		return 0, nil
	}
	return s.accept(key, header, certified), nil
}

// missingAncestors returns the parents of the header that are not accepted.
// Parents evicted from memory are looked up in the header store.
func (s *DagState) missingAncestors(header *narwhal.Header) ([]narwhal.Identifier, error) {
	var missing []narwhal.Identifier
	for _, parent := range header.Parents {
		if _, ok := s.entries[parent]; ok {
			continue
		}
		if s.committee.IsGenesis(parent) {
			continue
		}
		ancestor, err := s.headers.ByCertificateID(parent)
		if errors.Is(err, storage.ErrNotFound) {
			missing = append(missing, parent)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not look up ancestor %x of %s: %w", parent, header, err)
		}
		if int(ancestor.Author) >= len(s.evicted) || ancestor.Round > s.evicted[ancestor.Author] {
			missing = append(missing, parent)
		}
	}
	return missing, nil
}

func (s *DagState) suspend(key narwhal.Identifier, header *narwhal.Header, certified bool, missing []narwhal.Identifier) {
	sus, ok := s.suspended[key]
	if !ok {
		sus = &suspendedHeader{dependents: make(map[narwhal.Identifier]struct{})}
		s.suspended[key] = sus
	}
	sus.header = header
	sus.certified = certified
	sus.missing = make(map[narwhal.Identifier]struct{}, len(missing))
	for _, parent := range missing {
		sus.missing[parent] = struct{}{}
		ancestor, ok := s.suspended[parent]
		if !ok {
			ancestor = &suspendedHeader{dependents: make(map[narwhal.Identifier]struct{})}
			s.suspended[parent] = ancestor
		}
		ancestor.dependents[key] = struct{}{}
	}
	s.suspendedCount[header.Author]++
	s.metrics.HeaderSuspended(metrics.ReasonMissingAncestors)
	s.log.Debug().
		Hex("header_id", logging.ID(header.ID)).
		Uint64("round", uint64(header.Round)).
		Strs("missing", logging.IDs(missing)).
		Msg("header suspended")
}

// accept inserts the header and every suspended header that was only waiting
// for it, transitively. Returns the number of accepted headers.
func (s *DagState) accept(key narwhal.Identifier, header *narwhal.Header, certified bool) int {
	stack := []*entry{{key: key, header: header, certified: certified}}
	accepted := 0
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := s.entries[e.key]; ok {
			continue
		}

		s.entries[e.key] = e
		s.insertByAuthor(e)
		if e.certified {
			s.countRound(e)
		}
		accepted++

		sus, ok := s.suspended[e.key]
		if !ok {
			continue
		}
		delete(s.suspended, e.key)
		if sus.header != nil {
			s.suspendedCount[sus.header.Author]--
		}
		for dependentKey := range sus.dependents {
			dependent, ok := s.suspended[dependentKey]
			if !ok {
				continue
			}
			delete(dependent.missing, e.key)
			if len(dependent.missing) == 0 && dependent.header != nil {
				stack = append(stack, &entry{key: dependentKey, header: dependent.header, certified: dependent.certified})
			}
		}
	}
	return accepted
}

func (s *DagState) insertByAuthor(e *entry) {
	list := s.byAuthor[e.header.Author]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].header.Round > e.header.Round
	})
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	s.byAuthor[e.header.Author] = list
}

// countRound adds the stake of a certified header to its round. Rounds below
// the tracked window are ignored.
func (s *DagState) countRound(e *entry) {
	round := e.header.Round
	if round < s.lowestRound {
		return
	}
	info, ok := s.rounds[round]
	if !ok {
		info = &roundInfo{authors: make(map[narwhal.AuthorityIndex]struct{})}
		s.rounds[round] = info
	}
	if _, ok := info.authors[e.header.Author]; ok {
		return
	}
	info.authors[e.header.Author] = struct{}{}
	info.stake += s.committee.Stake(e.header.Author)
	if info.quorumTime.IsZero() && s.committee.ReachedQuorum(info.stake) {
		info.quorumTime = time.Now()
	}
	if round > s.highestRound {
		s.highestRound = round
	}
}

// TryPropose decides whether this node should propose now. It proposes on the
// highest round, not below its last proposal, that has quorum and either every
// authority or has waited MaxProposalWait since reaching quorum.
func (s *DagState) TryPropose() ProposeResult {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := time.Now()
	next := s.cfg.CheckDelay
	chosen, found := narwhal.Round(0), false
	for r := s.highestRound; r >= s.highestProposedRound; r-- {
		info, ok := s.rounds[r]
		if ok && !info.quorumTime.IsZero() {
			elapsed := now.Sub(info.quorumTime)
			if len(info.authors) == s.committee.Size() || elapsed >= s.cfg.MaxProposalWait {
				chosen, found = r, true
				break
			}
			if wait := s.cfg.MaxProposalWait - elapsed; wait < next {
				next = wait
			}
		}
		if r == 0 {
			break
		}
	}
	if !found {
		return ProposeResult{NextCheckDelay: next}
	}

	round := chosen + 1
	proposal := &Proposal{Round: round}
	for _, author := range s.committee.Indices() {
		list := s.byAuthor[author]
		for i := len(list) - 1; i >= 0; i-- {
			e := list[i]
			if e.header.Round >= round || !e.certified {
				continue
			}
			proposal.Ancestors = append(proposal.Ancestors, e.key)
			if e.header.CreatedAt > proposal.MaxAncestorTime {
				proposal.MaxAncestorTime = e.header.CreatedAt
			}
			break
		}
	}
	s.highestProposedRound = round

	return ProposeResult{Proposal: proposal, NextCheckDelay: s.cfg.CheckDelay}
}

// Flush persists the accepted headers that were not persisted yet, then drops
// old headers and rounds from memory.
// No errors are expected during normal operations.
func (s *DagState) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var batch []*narwhal.Header
	highest := make([]narwhal.Round, len(s.persisted))
	copy(highest, s.persisted)
	for author, list := range s.byAuthor {
		for i := len(list) - 1; i >= 0 && list[i].header.Round > s.persisted[author]; i-- {
			batch = append(batch, list[i].header)
			if list[i].header.Round > highest[author] {
				highest[author] = list[i].header.Round
			}
		}
	}
	if len(batch) > 0 {
		err := s.headers.StoreAll(batch)
		if err != nil {
			return fmt.Errorf("could not flush %d headers: %w", len(batch), err)
		}
	}
	s.persisted = highest

	s.gc()
	return nil
}

func (s *DagState) gc() {
	for author, list := range s.byAuthor {
		excess := len(list) - s.cfg.HeadersPerAuthority
		if excess <= 0 {
			continue
		}
		evict := 0
		for evict < excess && list[evict].header.Round <= s.persisted[author] {
			delete(s.entries, list[evict].key)
			s.evicted[author] = list[evict].header.Round
			evict++
		}
		s.byAuthor[author] = append([]*entry(nil), list[evict:]...)
	}

	for len(s.rounds) > s.cfg.RoundsCached && s.lowestRound < s.highestProposedRound {
		delete(s.rounds, s.lowestRound)
		s.lowestRound++
	}
}

// Contains checks whether the certificate digest belongs to an accepted header
// still held in memory.
func (s *DagState) Contains(key narwhal.Identifier) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.entries[key]
	return ok
}

// LastRoundPerAuthority returns the round of the latest accepted header of
// every authority.
func (s *DagState) LastRoundPerAuthority() map[narwhal.AuthorityIndex]narwhal.Round {
	s.lock.Lock()
	defer s.lock.Unlock()

	rounds := make(map[narwhal.AuthorityIndex]narwhal.Round, len(s.byAuthor))
	for author, list := range s.byAuthor {
		round := s.evicted[author]
		if len(list) > 0 {
			round = list[len(list)-1].header.Round
		}
		rounds[narwhal.AuthorityIndex(author)] = round
	}
	return rounds
}

func (s *DagState) HighestProposedRound() narwhal.Round {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.highestProposedRound
}

// NumSuspended returns the number of headers waiting for ancestors.
func (s *DagState) NumSuspended() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.numSuspended()
}

func (s *DagState) numSuspended() int {
	total := 0
	for _, n := range s.suspendedCount {
		total += n
	}
	return total
}

func certificateKey(header *narwhal.Header) narwhal.Identifier {
	return narwhal.MakeCertificateID(header.ID, header.Round, header.Author)
}
