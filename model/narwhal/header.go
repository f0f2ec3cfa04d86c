package narwhal

import (
	"fmt"
	"sort"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/model/encoding"
)

// PayloadEntry locates a batch referenced by a header: the worker of the
// header's author that stores it and the time the worker sealed it.
type PayloadEntry struct {
	WorkerID  WorkerID
	CreatedAt TimestampMs
}

// Header is the proposal of one authority for one round.
type Header struct {
	Author    AuthorityIndex
	Round     Round
	Epoch     Epoch
	CreatedAt TimestampMs
	Payload   map[Identifier]PayloadEntry
	// Parents is the sorted set of certificate digests of the previous round.
	Parents   IdentifierList
	ID        Identifier
	Signature crypto.Signature
}

// UnsignedHeader carries the fields a proposer chooses for a new header.
type UnsignedHeader struct {
	Author    AuthorityIndex
	Round     Round
	Epoch     Epoch
	CreatedAt TimestampMs
	Payload   map[Identifier]PayloadEntry
	Parents   []Identifier
}

// NewHeader computes the digest of the header and signs it. Parents are
// stored as a sorted set.
func NewHeader(unsigned UnsignedHeader, signer crypto.Signer) (*Header, error) {
	payload := make(map[Identifier]PayloadEntry, len(unsigned.Payload))
	for digest, entry := range unsigned.Payload {
		payload[digest] = entry
	}
	header := &Header{
		Author:    unsigned.Author,
		Round:     unsigned.Round,
		Epoch:     unsigned.Epoch,
		CreatedAt: unsigned.CreatedAt,
		Payload:   payload,
		Parents:   IdentifierList(unsigned.Parents).Canonical(),
	}

	id, err := header.Digest()
	if err != nil {
		return nil, fmt.Errorf("could not compute header digest: %w", err)
	}
	header.ID = id

	sig, err := signer.Sign(id[:])
	if err != nil {
		return nil, fmt.Errorf("could not sign header %x: %w", id, err)
	}
	header.Signature = sig

	return header, nil
}

type payloadItem struct {
	_         struct{} `cbor:",toarray"`
	Digest    Identifier
	WorkerID  WorkerID
	CreatedAt TimestampMs
}

type headerBody struct {
	_         struct{} `cbor:",toarray"`
	Author    AuthorityIndex
	Round     Round
	Epoch     Epoch
	CreatedAt TimestampMs
	Payload   []payloadItem
	Parents   IdentifierList
}

// Digest recomputes the content digest over every field except ID and
// Signature. Payload entries are sorted by batch digest so the result does not
// depend on map iteration order.
func (h *Header) Digest() (Identifier, error) {
	items := make([]payloadItem, 0, len(h.Payload))
	for digest, entry := range h.Payload {
		items = append(items, payloadItem{Digest: digest, WorkerID: entry.WorkerID, CreatedAt: entry.CreatedAt})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Digest.Compare(items[j].Digest) < 0
	})
	parents := h.Parents
	if parents == nil {
		parents = IdentifierList{}
	}
	return MakeID(encoding.HeaderTag, headerBody{
		Author:    h.Author,
		Round:     h.Round,
		Epoch:     h.Epoch,
		CreatedAt: h.CreatedAt,
		Payload:   items,
		Parents:   parents,
	})
}

// PayloadDigests returns the batch digests of the payload in ascending order.
func (h *Header) PayloadDigests() IdentifierList {
	digests := make(IdentifierList, 0, len(h.Payload))
	for digest := range h.Payload {
		digests = append(digests, digest)
	}
	sort.Sort(digests)
	return digests
}

func (h *Header) String() string {
	return fmt.Sprintf("header %s (author %d, round %d)", h.ID.Short(), h.Author, h.Round)
}

// Verify checks the header against the committee of its epoch. Every failure is
// a protocol violation by the sender.
func (h *Header) Verify(committee *Committee) error {
	if h.Epoch != committee.Epoch() {
		return InvalidEpochError{Expected: committee.Epoch(), Received: h.Epoch}
	}

	id, err := h.Digest()
	if err != nil {
		return NewInvalidHeaderErrorf(h, "could not compute digest: %w", err)
	}
	if id != h.ID {
		return NewInvalidHeaderErrorf(h, "id does not match content digest %x", id)
	}
	if !h.Parents.IsCanonical() {
		return NewInvalidHeaderErrorf(h, "parents are not a sorted set")
	}

	author, ok := committee.ToAuthorityIndex(uint64(h.Author))
	if !ok || committee.Stake(author) == 0 {
		return UnknownAuthorityError{Authority: uint64(h.Author)}
	}

	for _, entry := range h.Payload {
		if _, err := committee.Worker(author, entry.WorkerID); err != nil {
			return err
		}
	}

	valid, err := committee.Authority(author).PublicKey.Verify(h.Signature, id[:])
	if err != nil {
		return InvalidSignatureError{Err: err}
	}
	if !valid {
		return InvalidSignatureError{Err: fmt.Errorf("header %x by authority %d: %w", id, author, crypto.ErrInvalidSignature)}
	}
	return nil
}

func genesisHeader(epoch Epoch, author AuthorityIndex) *Header {
	header := &Header{
		Author:  author,
		Round:   0,
		Epoch:   epoch,
		Payload: map[Identifier]PayloadEntry{},
		Parents: IdentifierList{},
	}
	id, err := header.Digest()
	if err != nil {
		panic(fmt.Sprintf("could not compute genesis header digest: %v", err))
	}
	header.ID = id
	return header
}
