package store

import (
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

// Certificates implements persistent storage for certificates.
type Certificates struct {
	db    storage.DB
	cache *Cache[narwhal.Identifier, *narwhal.Certificate]
}

var _ storage.Certificates = (*Certificates)(nil)

func NewCertificates(collector module.CacheMetrics, db storage.DB, cacheSize uint) *Certificates {
	store := func(rw storage.ReaderBatchWriter, _ narwhal.Identifier, certificate *narwhal.Certificate) error {
		return operation.InsertCertificate(rw.Writer(), certificate)
	}

	retrieve := func(r storage.Reader, certificateID narwhal.Identifier) (*narwhal.Certificate, error) {
		var certificate narwhal.Certificate
		err := operation.RetrieveCertificate(r, certificateID, &certificate)
		return &certificate, err
	}

	return &Certificates{
		db: db,
		cache: newCache(collector, metrics.ResourceCertificate,
			withLimit[narwhal.Identifier, *narwhal.Certificate](cacheSize),
			withStore(store),
			withRetrieve(retrieve)),
	}
}

func (c *Certificates) storeTx(rw storage.ReaderBatchWriter, certificate *narwhal.Certificate) error {
	return c.cache.PutTx(rw, certificate.ID(), certificate)
}

func (c *Certificates) Store(certificate *narwhal.Certificate) error {
	return c.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		return c.storeTx(rw, certificate)
	})
}

func (c *Certificates) StoreAll(certificates []*narwhal.Certificate) error {
	return c.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		for _, certificate := range certificates {
			if err := c.storeTx(rw, certificate); err != nil {
				return fmt.Errorf("could not store certificate %v: %w", certificate.ID(), err)
			}
		}
		return nil
	})
}

// ByID returns the certificate with the given digest.
// Expected errors during normal operations:
//   - storage.ErrNotFound if no such certificate was stored.
func (c *Certificates) ByID(certificateID narwhal.Identifier) (*narwhal.Certificate, error) {
	return c.cache.Get(c.db.Reader(), certificateID)
}

func (c *Certificates) Exists(certificateID narwhal.Identifier) (bool, error) {
	if c.cache.IsCached(certificateID) {
		return true, nil
	}
	return operation.CertificateExists(c.db.Reader(), certificateID)
}
