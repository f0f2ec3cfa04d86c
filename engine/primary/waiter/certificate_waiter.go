package waiter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/engine/primary/synchronizer"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/component"
	"github.com/dagbft/narwhal/module/irrecoverable"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/utils/logging"
)

// CertificateWaiter parks certificates whose ancestors are unknown. It fetches
// the missing parents from the certificate's origin, hands them to the
// consumer and resubmits the certificate once all parents are stored.
type CertificateWaiter struct {
	*component.ComponentManager
	log          zerolog.Logger
	committee    *narwhal.Committee
	fetcher      network.CertificateFetcher
	certificates storage.Certificates
	queue        *parkingQueue[*narwhal.Certificate]
	consumer     Consumer
}

var _ synchronizer.CertificateWaiter = (*CertificateWaiter)(nil)

func NewCertificateWaiter(
	log zerolog.Logger,
	committee *narwhal.Committee,
	fetcher network.CertificateFetcher,
	certificates storage.Certificates,
	opts ...OptionFunc,
) (*CertificateWaiter, error) {
	config := DefaultConfig()
	for _, apply := range opts {
		apply(&config)
	}
	log = log.With().Str("component", "certificate_waiter").Logger()
	queue, err := newParkingQueue[*narwhal.Certificate](log, config)
	if err != nil {
		return nil, fmt.Errorf("could not create certificate waiter queue: %w", err)
	}

	w := &CertificateWaiter{
		log:          log,
		committee:    committee,
		fetcher:      fetcher,
		certificates: certificates,
		queue:        queue,
	}
	w.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			if w.consumer == nil {
				ctx.Throw(fmt.Errorf("certificate waiter started without consumer"))
				return
			}
			queue.worker(w.resolve)(ctx, ready)
		}).
		Build()
	return w, nil
}

// WithConsumer sets the consumer of fetched and resolved certificates. It must
// be called before the waiter is started.
func (w *CertificateWaiter) WithConsumer(consumer Consumer) {
	w.consumer = consumer
}

func (w *CertificateWaiter) SyncCertificate(certificate *narwhal.Certificate) bool {
	return w.queue.park(certificate.ID(), certificate)
}

// Pending returns the number of parked certificates.
func (w *CertificateWaiter) Pending() int {
	return w.queue.Len()
}

func (w *CertificateWaiter) resolve(ctx irrecoverable.SignalerContext, certificate *narwhal.Certificate, release func()) {
	log := w.log.With().
		Hex("certificate_id", logging.ID(certificate.ID())).
		Uint16("origin", uint16(certificate.Origin())).
		Uint64("round", uint64(certificate.Round())).
		Logger()

	missing, err := w.missingParents(certificate)
	if err != nil {
		ctx.Throw(err)
		return
	}
	if len(missing) > 0 {
		w.fetch(ctx, log, certificate.Origin(), missing)
	}

	available, err := w.queue.awaitStores(ctx, func() (bool, error) {
		missing, err := w.missingParents(certificate)
		return len(missing) == 0, err
	})
	if err != nil {
		ctx.Throw(fmt.Errorf("could not check parents of certificate %x: %w", certificate.ID(), err))
		return
	}
	if !available {
		log.Debug().Msg("parents of certificate did not arrive, giving up")
		return
	}
	log.Debug().Msg("parents of certificate available, resubmitting")
	release()
	w.consumer.ResubmitCertificate(certificate)
}

func (w *CertificateWaiter) fetch(ctx context.Context, log zerolog.Logger, origin narwhal.AuthorityIndex, missing []narwhal.Identifier) {
	ctx, cancel := context.WithTimeout(ctx, w.queue.config.FetchTimeout)
	defer cancel()

	err := w.queue.limiter.Wait(ctx, origin)
	if err != nil {
		log.Debug().Err(err).Msg("request to origin rate limited, skipping fetch")
		return
	}
	certs, err := w.fetcher.FetchCertificates(ctx, origin, missing)
	if err != nil {
		log.Debug().Err(err).Strs("missing", logging.IDs(missing)).Msg("could not fetch parent certificates")
	}
	for _, cert := range certs {
		w.consumer.ResubmitCertificate(cert)
	}
}

func (w *CertificateWaiter) missingParents(certificate *narwhal.Certificate) ([]narwhal.Identifier, error) {
	var missing []narwhal.Identifier
	for _, parentID := range certificate.Header.Parents {
		if w.committee.IsGenesis(parentID) {
			continue
		}
		exists, err := w.certificates.Exists(parentID)
		if err != nil {
			return nil, fmt.Errorf("could not check parent %x: %w", parentID, err)
		}
		if !exists {
			missing = append(missing, parentID)
		}
	}
	return missing, nil
}
