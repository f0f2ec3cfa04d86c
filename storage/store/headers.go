package store

import (
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/storage"
	"github.com/dagbft/narwhal/storage/operation"
)

// Headers implements persistent storage for headers and their indexes.
type Headers struct {
	db    storage.DB
	cache *Cache[narwhal.Identifier, *narwhal.Header]
	// byCertificateCache maps the digest a certificate of the header would
	// have to the header id.
	byCertificateCache *Cache[narwhal.Identifier, narwhal.Identifier]
}

var _ storage.Headers = (*Headers)(nil)

func NewHeaders(collector module.CacheMetrics, db storage.DB, cacheSize uint) *Headers {
	store := func(rw storage.ReaderBatchWriter, _ narwhal.Identifier, header *narwhal.Header) error {
		return operation.InsertHeader(rw.Writer(), header)
	}

	retrieve := func(r storage.Reader, headerID narwhal.Identifier) (*narwhal.Header, error) {
		var header narwhal.Header
		err := operation.RetrieveHeader(r, headerID, &header)
		return &header, err
	}

	lookupByCertificate := func(r storage.Reader, certificateID narwhal.Identifier) (narwhal.Identifier, error) {
		var headerID narwhal.Identifier
		err := operation.LookupHeaderByCertificate(r, certificateID, &headerID)
		if err != nil {
			return narwhal.ZeroID, fmt.Errorf("could not lookup header for certificate %v: %w", certificateID, err)
		}
		return headerID, nil
	}

	return &Headers{
		db: db,
		cache: newCache(collector, metrics.ResourceHeader,
			withLimit[narwhal.Identifier, *narwhal.Header](cacheSize),
			withStore(store),
			withRetrieve(retrieve)),
		byCertificateCache: newCache(collector, metrics.ResourceHeaderByCertificate,
			withLimit[narwhal.Identifier, narwhal.Identifier](cacheSize),
			withRetrieve(lookupByCertificate)),
	}
}

func (h *Headers) storeTx(rw storage.ReaderBatchWriter, header *narwhal.Header) error {
	err := h.cache.PutTx(rw, header.ID, header)
	if err != nil {
		return err
	}
	// the index is written by InsertHeader, only the cache needs updating
	certificateID := narwhal.MakeCertificateID(header.ID, header.Round, header.Author)
	rw.AddCallback(func(err error) {
		if err == nil {
			h.byCertificateCache.Insert(certificateID, header.ID)
		}
	})
	return nil
}

func (h *Headers) Store(header *narwhal.Header) error {
	return h.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		return h.storeTx(rw, header)
	})
}

func (h *Headers) StoreAll(headers []*narwhal.Header) error {
	return h.db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		for _, header := range headers {
			if err := h.storeTx(rw, header); err != nil {
				return fmt.Errorf("could not store header %v: %w", header.ID, err)
			}
		}
		return nil
	})
}

// ByID returns the header with the given id.
// Expected errors during normal operations:
//   - storage.ErrNotFound if no such header was stored.
func (h *Headers) ByID(headerID narwhal.Identifier) (*narwhal.Header, error) {
	return h.cache.Get(h.db.Reader(), headerID)
}

// ByCertificateID returns the header certified by the given certificate digest.
// Expected errors during normal operations:
//   - storage.ErrNotFound if no such header was stored.
func (h *Headers) ByCertificateID(certificateID narwhal.Identifier) (*narwhal.Header, error) {
	headerID, err := h.byCertificateCache.Get(h.db.Reader(), certificateID)
	if err != nil {
		return nil, err
	}
	return h.ByID(headerID)
}

func (h *Headers) ExistsByCertificateID(certificateID narwhal.Identifier) (bool, error) {
	if h.byCertificateCache.IsCached(certificateID) {
		return true, nil
	}
	return operation.HeaderExistsByCertificate(h.db.Reader(), certificateID)
}

func (h *Headers) ByAuthorAfterRound(author narwhal.AuthorityIndex, round narwhal.Round) ([]*narwhal.Header, error) {
	var headerIDs []narwhal.Identifier
	err := operation.LookupHeadersByAuthorAfterRound(h.db.Reader(), author, round, &headerIDs)
	if err != nil {
		return nil, fmt.Errorf("could not lookup headers of authority %d after round %d: %w", author, round, err)
	}
	headers := make([]*narwhal.Header, 0, len(headerIDs))
	for _, headerID := range headerIDs {
		header, err := h.ByID(headerID)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve indexed header %v: %w", headerID, err)
		}
		headers = append(headers, header)
	}
	return headers, nil
}
