package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/module/trace"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// HeaderWaiter parks headers whose payload or parents are not available yet.
// Both methods return false when the request was dropped.
type HeaderWaiter interface {
	SyncBatches(missing map[narwhal.Identifier]narwhal.WorkerID, header *narwhal.Header) bool
	SyncParents(missing []narwhal.Identifier, header *narwhal.Header) bool
}

// CertificateWaiter parks certificates whose ancestors are unknown. It returns
// false when the request was dropped.
type CertificateWaiter interface {
	SyncCertificate(certificate *narwhal.Certificate) bool
}

// DAGMembership answers whether a certificate was processed by this node.
type DAGMembership interface {
	Contains(certificateID narwhal.Identifier) bool
}

// Synchronizer detects the dependencies of headers and certificates that are
// not available locally and hands them to the waiters. It never blocks on the
// waiters: a request that does not fit is dropped, and the message is retried
// when it arrives again through another path.
type Synchronizer struct {
	log          zerolog.Logger
	tracer       module.Tracer
	metrics      module.PrimaryMetrics
	me           narwhal.AuthorityIndex
	certificates storage.Certificates
	payloads     storage.Payloads
	dag          DAGMembership
	headers      HeaderWaiter
	certs        CertificateWaiter
	config       Config

	genesisLock sync.RWMutex
	genesis     map[narwhal.Identifier]*narwhal.Certificate
}

// New creates a synchronizer. dag may be nil, in which case the certificate
// store alone decides whether a parent was processed.
func New(
	log zerolog.Logger,
	tracer module.Tracer,
	collector module.PrimaryMetrics,
	committee *narwhal.Committee,
	me narwhal.AuthorityIndex,
	certificates storage.Certificates,
	payloads storage.Payloads,
	dag DAGMembership,
	headers HeaderWaiter,
	certs CertificateWaiter,
	opts ...OptionFunc,
) (*Synchronizer, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	if config.LookupWorkers < 1 {
		return nil, narwhal.NewConfigurationErrorf("synchronizer needs at least one lookup worker, got %d", config.LookupWorkers)
	}

	s := &Synchronizer{
		log:          log.With().Str("component", "synchronizer").Logger(),
		tracer:       tracer,
		metrics:      collector,
		me:           me,
		certificates: certificates,
		payloads:     payloads,
		dag:          dag,
		headers:      headers,
		certs:        certs,
		config:       config,
	}
	s.UpdateGenesis(committee)
	return s, nil
}

// UpdateGenesis replaces the genesis certificates with those of the given
// committee. It is called on epoch change.
func (s *Synchronizer) UpdateGenesis(committee *narwhal.Committee) {
	genesis := make(map[narwhal.Identifier]*narwhal.Certificate, committee.Size())
	for _, cert := range committee.Genesis() {
		genesis[cert.ID()] = cert
	}
	s.genesisLock.Lock()
	s.genesis = genesis
	s.genesisLock.Unlock()
}

func (s *Synchronizer) genesisCertificate(id narwhal.Identifier) (*narwhal.Certificate, bool) {
	s.genesisLock.RLock()
	defer s.genesisLock.RUnlock()
	cert, ok := s.genesis[id]
	return cert, ok
}

// MissingPayload reports whether some batch of a peer's header is not stored
// by the worker the header names for it. Missing batches are requested from
// the header waiter. Headers authored by this node never miss payload.
// No errors are expected during normal operations.
func (s *Synchronizer) MissingPayload(ctx context.Context, header *narwhal.Header) (bool, error) {
	if header.Author == s.me {
		return false, nil
	}

	span, ctx := s.tracer.StartSpanFromContext(ctx, trace.SynchronizerPayload)
	span.SetAttributes(attribute.Int("payload_size", len(header.Payload)))
	defer span.End()

	var lock sync.Mutex
	missing := make(map[narwhal.Identifier]narwhal.WorkerID)
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(s.config.LookupWorkers)
	for digest, entry := range header.Payload {
		digest, workerID := digest, entry.WorkerID
		group.Go(func() error {
			exists, err := s.payloads.Exists(digest, workerID)
			if err != nil {
				return fmt.Errorf("could not check payload %x at worker %d: %w", digest, workerID, err)
			}
			if !exists {
				lock.Lock()
				missing[digest] = workerID
				lock.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return false, err
	}
	if len(missing) == 0 {
		return false, nil
	}

	s.metrics.HeaderSuspended(metrics.ReasonMissingPayload)
	if !s.headers.SyncBatches(missing, header) {
		s.metrics.SyncRequestDropped(metrics.QueueHeaderWaiter)
		s.log.Debug().
			Hex("header_id", logging.ID(header.ID)).
			Int("missing", len(missing)).
			Msg("header waiter is full, dropping payload sync request")
	}
	return true, nil
}

// GetParents returns the parent certificates of the header in the order of
// header.Parents. If any parent is unknown, the whole missing set is requested
// and the result is empty.
// No errors are expected during normal operations.
func (s *Synchronizer) GetParents(ctx context.Context, header *narwhal.Header) ([]*narwhal.Certificate, error) {
	span, ctx := s.tracer.StartSpanFromContext(ctx, trace.SynchronizerGetParents)
	span.SetAttributes(attribute.Int("parents", len(header.Parents)))
	defer span.End()

	parents := make([]*narwhal.Certificate, len(header.Parents))
	found := make([]bool, len(header.Parents))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(s.config.LookupWorkers)
	for i, parentID := range header.Parents {
		if cert, ok := s.genesisCertificate(parentID); ok {
			parents[i] = cert
			found[i] = true
			continue
		}
		i, parentID := i, parentID
		group.Go(func() error {
			cert, err := s.certificates.ByID(parentID)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not get parent certificate %x: %w", parentID, err)
			}
			parents[i] = cert
			found[i] = true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var missing []narwhal.Identifier
	for i, ok := range found {
		if !ok {
			missing = append(missing, header.Parents[i])
		}
	}
	if len(missing) == 0 {
		return parents, nil
	}

	s.metrics.HeaderSuspended(metrics.ReasonMissingParents)
	if !s.headers.SyncParents(missing, header) {
		s.metrics.SyncRequestDropped(metrics.QueueHeaderWaiter)
		s.log.Debug().
			Hex("header_id", logging.ID(header.ID)).
			Strs("missing", logging.IDs(missing)).
			Msg("header waiter is full, dropping parent sync request")
	}
	return nil, nil
}

// CheckParents reports whether every parent of the certificate was processed
// by this node. Otherwise the certificate goes to the certificate waiter.
// No errors are expected during normal operations.
func (s *Synchronizer) CheckParents(certificate *narwhal.Certificate) (bool, error) {
	for _, parentID := range certificate.Header.Parents {
		if _, ok := s.genesisCertificate(parentID); ok {
			continue
		}
		if s.dag != nil && s.dag.Contains(parentID) {
			continue
		}
		exists, err := s.certificates.Exists(parentID)
		if err != nil {
			return false, fmt.Errorf("could not check parent certificate %x: %w", parentID, err)
		}
		if exists {
			continue
		}

		s.metrics.HeaderSuspended(metrics.ReasonMissingParents)
		if !s.certs.SyncCertificate(certificate) {
			s.metrics.SyncRequestDropped(metrics.QueueCertificateWaiter)
			s.log.Debug().
				Hex("certificate_id", logging.ID(certificate.ID())).
				Msg("certificate waiter is full, dropping certificate sync request")
		}
		return false, nil
	}
	return true, nil
}
