package narwhal

import (
	"encoding/binary"
	"fmt"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/crypto/hash"
	"github.com/dagbft/narwhal/model/encoding"
)

// Vote is the endorsement of a header by one authority. The voter signs the
// digest of the certificate the header will become, not the header bytes.
type Vote struct {
	HeaderID  Identifier
	Round     Round
	Epoch     Epoch
	Origin    AuthorityIndex
	Author    AuthorityIndex
	Signature crypto.Signature
}

// NewVote signs the header on behalf of voter.
func NewVote(header *Header, voter AuthorityIndex, signer crypto.Signer) (*Vote, error) {
	vote := &Vote{
		HeaderID: header.ID,
		Round:    header.Round,
		Epoch:    header.Epoch,
		Origin:   header.Author,
		Author:   voter,
	}
	digest := vote.Digest()
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("could not sign vote for header %x: %w", header.ID, err)
	}
	vote.Signature = sig
	return vote, nil
}

// Digest is the message the voter signs. It equals the digest of the
// certificate for the voted header.
func (v *Vote) Digest() Identifier {
	return MakeCertificateID(v.HeaderID, v.Round, v.Origin)
}

func (v *Vote) String() string {
	return fmt.Sprintf("vote by %d for %s (origin %d, round %d)", v.Author, v.HeaderID.Short(), v.Origin, v.Round)
}

// Verify checks the voter and the signature.
func (v *Vote) Verify(committee *Committee) error {
	if v.Epoch != committee.Epoch() {
		return InvalidEpochError{Expected: committee.Epoch(), Received: v.Epoch}
	}
	voter, ok := committee.ToAuthorityIndex(uint64(v.Author))
	if !ok || committee.Stake(voter) == 0 {
		return UnknownAuthorityError{Authority: uint64(v.Author)}
	}
	digest := v.Digest()
	valid, err := committee.Authority(voter).PublicKey.Verify(v.Signature, digest[:])
	if err != nil {
		return InvalidSignatureError{Err: err}
	}
	if !valid {
		return InvalidSignatureError{Err: fmt.Errorf("vote by authority %d: %w", voter, crypto.ErrInvalidSignature)}
	}
	return nil
}

// MakeCertificateID derives the digest identifying the certificate of a header
// from the header id, its round and its author. Big-endian round and author
// follow the header id.
func MakeCertificateID(headerID Identifier, round Round, origin AuthorityIndex) Identifier {
	msg := make([]byte, 0, IdentifierLen+10)
	msg = append(msg, headerID[:]...)
	msg = binary.BigEndian.AppendUint64(msg, uint64(round))
	msg = binary.BigEndian.AppendUint16(msg, uint16(origin))
	return hash.ComputeSHA3_256(encoding.CertificateTag, msg)
}
