package dag

import (
	"github.com/dagbft/narwhal/model/narwhal"
)

// Vertex is the payload of a DAG node. The DAG only relies on its identity
// and on the identities of its parents.
type Vertex interface {
	// VertexID returns the vertex's unique identifier.
	VertexID() narwhal.Identifier
	// Level returns the round of the vertex.
	Level() uint64
	// Parents returns the identifiers of the vertices this vertex references.
	Parents() []narwhal.Identifier
}

// CertificateContainer wraps a certificate to implement Vertex, so the
// certificate can be stored in the DAG.
type CertificateContainer narwhal.Certificate

var _ Vertex = (*CertificateContainer)(nil)

func ToCertificateContainer(cert *narwhal.Certificate) *CertificateContainer {
	return (*CertificateContainer)(cert)
}

func (c *CertificateContainer) Certificate() *narwhal.Certificate {
	return (*narwhal.Certificate)(c)
}

// Functions implementing Vertex
func (c *CertificateContainer) VertexID() narwhal.Identifier { return c.Certificate().ID() }
func (c *CertificateContainer) Level() uint64                { return uint64(c.Header.Round) }
func (c *CertificateContainer) Parents() []narwhal.Identifier {
	return c.Header.Parents
}
