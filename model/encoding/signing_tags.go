package encoding

// List of domain separation tags for protocol digests.
//
// Every digest that is signed or referenced by other messages is prefixed with a
// tag naming the kind of object it commits to, so that a header digest can never
// be replayed as a vote digest and vice versa.

func tag(domain string) []byte {
	return []byte(protocolPrefix + domain)
}

const protocolPrefix = "NARWHAL-V0_"

var (
	// HeaderTag prefixes the canonical encoding of a header body.
	HeaderTag = tag("Header")
	// CertificateTag prefixes the (header id, round, origin) triple that votes sign
	// and that identifies a certificate.
	CertificateTag = tag("Certificate")
	// BatchTag prefixes the canonical encoding of a transaction batch.
	BatchTag = tag("Batch")
	// GenesisTag seeds the genesis header of each authority.
	GenesisTag = tag("Genesis")
)
