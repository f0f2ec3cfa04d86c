package operation

import (
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/storage"
)

func InsertCertificate(w storage.Writer, certificate *narwhal.Certificate) error {
	return UpsertByKey(w, MakePrefix(codeCertificate, certificate.ID()), certificate)
}

func RetrieveCertificate(r storage.Reader, certificateID narwhal.Identifier, certificate *narwhal.Certificate) error {
	return RetrieveByKey(r, MakePrefix(codeCertificate, certificateID), certificate)
}

func CertificateExists(r storage.Reader, certificateID narwhal.Identifier) (bool, error) {
	return KeyExists(r, MakePrefix(codeCertificate, certificateID))
}

// InsertHeader stores the header together with its certificate and
// (author, round) indexes.
func InsertHeader(w storage.Writer, header *narwhal.Header) error {
	err := UpsertByKey(w, MakePrefix(codeHeader, header.ID), header)
	if err != nil {
		return err
	}
	certificateID := narwhal.MakeCertificateID(header.ID, header.Round, header.Author)
	err = UpsertByKey(w, MakePrefix(codeHeaderByCertificate, certificateID), header.ID)
	if err != nil {
		return err
	}
	return UpsertByKey(w, MakePrefix(codeHeaderByAuthorRound, header.Author, header.Round, header.ID), header.ID)
}

func RetrieveHeader(r storage.Reader, headerID narwhal.Identifier, header *narwhal.Header) error {
	return RetrieveByKey(r, MakePrefix(codeHeader, headerID), header)
}

func LookupHeaderByCertificate(r storage.Reader, certificateID narwhal.Identifier, headerID *narwhal.Identifier) error {
	return RetrieveByKey(r, MakePrefix(codeHeaderByCertificate, certificateID), headerID)
}

func HeaderExistsByCertificate(r storage.Reader, certificateID narwhal.Identifier) (bool, error) {
	return KeyExists(r, MakePrefix(codeHeaderByCertificate, certificateID))
}

// LookupHeadersByAuthorAfterRound collects the ids of every header by author
// with a round strictly above the given round, in ascending round order.
func LookupHeadersByAuthorAfterRound(r storage.Reader, author narwhal.AuthorityIndex, round narwhal.Round, headerIDs *[]narwhal.Identifier) error {
	start := MakePrefix(codeHeaderByAuthorRound, author, round+1)
	end := MakePrefix(codeHeaderByAuthorRound, author, narwhal.Round(^uint64(0)))
	return IterateKeys(r, start, end, func(_ []byte, getValue func(interface{}) error) (bool, error) {
		var id narwhal.Identifier
		if err := getValue(&id); err != nil {
			return true, err
		}
		*headerIDs = append(*headerIDs, id)
		return false, nil
	})
}

func InsertPayload(w storage.Writer, batchID narwhal.Identifier, worker narwhal.WorkerID) error {
	return UpsertByKey(w, MakePrefix(codePayload, batchID, worker), uint8(0))
}

func PayloadExists(r storage.Reader, batchID narwhal.Identifier, worker narwhal.WorkerID) (bool, error) {
	return KeyExists(r, MakePrefix(codePayload, batchID, worker))
}

func UpsertLastVote(w storage.Writer, origin narwhal.AuthorityIndex, vote storage.LastVote) error {
	return UpsertByKey(w, MakePrefix(codeLastVote, origin), vote)
}

func RetrieveLastVote(r storage.Reader, origin narwhal.AuthorityIndex, vote *storage.LastVote) error {
	return RetrieveByKey(r, MakePrefix(codeLastVote, origin), vote)
}

func InsertBatch(w storage.Writer, batchID narwhal.Identifier, batch *narwhal.Batch) error {
	return UpsertByKey(w, MakePrefix(codeBatch, batchID), batch)
}

func RetrieveBatch(r storage.Reader, batchID narwhal.Identifier, batch *narwhal.Batch) error {
	return RetrieveByKey(r, MakePrefix(codeBatch, batchID), batch)
}
