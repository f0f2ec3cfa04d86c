package dag

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/dagbft/narwhal/model/narwhal"
)

// Node is one vertex of the DAG together with its current parent edges.
// Edges are identifiers into the DAG's arena, so rewriting them never touches
// other nodes.
type Node struct {
	vertex       Vertex
	compressible *atomic.Bool

	lock    sync.RWMutex
	parents []narwhal.Identifier
}

func (n *Node) Vertex() Vertex {
	return n.vertex
}

// Parents returns the current parent edges. The returned slice is never
// modified afterwards, compression publishes a fresh slice instead.
func (n *Node) Parents() []narwhal.Identifier {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.parents
}

func (n *Node) setParents(parents []narwhal.Identifier) {
	n.lock.Lock()
	n.parents = parents
	n.lock.Unlock()
}

// IsLeaf returns true for nodes without parents, such as genesis certificates.
func (n *Node) IsLeaf() bool {
	return len(n.Parents()) == 0
}

func (n *Node) IsCompressible() bool {
	return n.compressible.Load()
}

// DAG is an arena of vertices addressed by identifier. Compression rewrites
// the parent edges of a node so that they skip compressible ancestors.
//
// DAG is safe for concurrent use. Readers traversing the DAG always observe
// either the old or the new parent set of a node. Compressions are serialized.
type DAG struct {
	lock  sync.RWMutex
	nodes map[narwhal.Identifier]*Node

	compressLock sync.Mutex
}

func New() *DAG {
	return &DAG{
		nodes: make(map[narwhal.Identifier]*Node),
	}
}

// Insert adds an incompressible vertex. All parents must have been inserted
// before. Inserting a known vertex is a no-op.
// Expected errors during normal operations:
//   - MissingParentError if a parent is unknown
func (d *DAG) Insert(vertex Vertex) error {
	id := vertex.VertexID()
	parents := dedup(vertex.Parents())

	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.nodes[id]; ok {
		return nil
	}
	for _, parent := range parents {
		if _, ok := d.nodes[parent]; !ok {
			return MissingParentError{VertexID: id, ParentID: parent}
		}
	}
	d.nodes[id] = &Node{
		vertex:       vertex,
		compressible: atomic.NewBool(false),
		parents:      parents,
	}
	return nil
}

// InsertAvailable adds an incompressible vertex with edges to the parents that
// are already in the DAG, and returns the parents it left out. Vertices whose
// older ancestors were never loaded, for example after a restart, are inserted
// this way.
func (d *DAG) InsertAvailable(vertex Vertex) []narwhal.Identifier {
	id := vertex.VertexID()
	all := dedup(vertex.Parents())

	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.nodes[id]; ok {
		return nil
	}
	parents := make([]narwhal.Identifier, 0, len(all))
	var omitted []narwhal.Identifier
	for _, parent := range all {
		if _, ok := d.nodes[parent]; ok {
			parents = append(parents, parent)
		} else {
			omitted = append(omitted, parent)
		}
	}
	d.nodes[id] = &Node{
		vertex:       vertex,
		compressible: atomic.NewBool(false),
		parents:      parents,
	}
	return omitted
}

func (d *DAG) Contains(id narwhal.Identifier) bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	_, ok := d.nodes[id]
	return ok
}

// Node returns the node with the given identifier.
func (d *DAG) Node(id narwhal.Identifier) (*Node, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	n, ok := d.nodes[id]
	return n, ok
}

// Size returns the number of vertices in the arena.
func (d *DAG) Size() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.nodes)
}

// MakeCompressible marks the vertex as skippable by compression. Returns
// false if the vertex is unknown or was already compressible.
func (d *DAG) MakeCompressible(id narwhal.Identifier) bool {
	n, ok := d.Node(id)
	if !ok {
		return false
	}
	return n.compressible.CompareAndSwap(false, true)
}

// IsTrivial returns true if every parent of the vertex is a leaf or
// incompressible.
// Expected errors during normal operations:
//   - UnknownVertexError if the vertex is unknown
func (d *DAG) IsTrivial(id narwhal.Identifier) (bool, error) {
	n, ok := d.Node(id)
	if !ok {
		return false, UnknownVertexError{VertexID: id}
	}
	return d.isTrivial(n), nil
}

func (d *DAG) isTrivial(n *Node) bool {
	for _, parentID := range n.Parents() {
		parent := d.mustNode(parentID)
		if !parent.IsLeaf() && parent.IsCompressible() {
			return false
		}
	}
	return true
}

// CompressPath rewrites the parents of the vertex so that each one is a leaf
// or incompressible. Compressible parents are compressed first and then
// replaced by their own parents.
// Expected errors during normal operations:
//   - UnknownVertexError if the vertex is unknown
func (d *DAG) CompressPath(id narwhal.Identifier) error {
	n, ok := d.Node(id)
	if !ok {
		return UnknownVertexError{VertexID: id}
	}

	d.compressLock.Lock()
	defer d.compressLock.Unlock()
	d.compress(n)
	return nil
}

func (d *DAG) compress(n *Node) {
	if d.isTrivial(n) {
		return
	}

	current := n.Parents()
	parents := make([]narwhal.Identifier, 0, len(current))
	seen := make(map[narwhal.Identifier]struct{}, len(current))
	add := func(id narwhal.Identifier) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		parents = append(parents, id)
	}

	for _, parentID := range current {
		parent := d.mustNode(parentID)
		if parent.IsLeaf() || !parent.IsCompressible() {
			add(parentID)
			continue
		}
		d.compress(parent)
		for _, grandparent := range parent.Parents() {
			add(grandparent)
		}
	}
	n.setParents(parents)
}

// Height is 1 for a leaf and otherwise one more than the highest parent.
// Expected errors during normal operations:
//   - UnknownVertexError if the vertex is unknown
func (d *DAG) Height(id narwhal.Identifier) (uint64, error) {
	n, ok := d.Node(id)
	if !ok {
		return 0, UnknownVertexError{VertexID: id}
	}
	return d.height(n, make(map[narwhal.Identifier]uint64)), nil
}

func (d *DAG) height(n *Node, memo map[narwhal.Identifier]uint64) uint64 {
	id := n.vertex.VertexID()
	if h, ok := memo[id]; ok {
		return h
	}
	var highest uint64
	for _, parentID := range n.Parents() {
		h := d.height(d.mustNode(parentID), memo)
		if h > highest {
			highest = h
		}
	}
	memo[id] = highest + 1
	return highest + 1
}

// ReadCausal returns the vertex and its causal history in breadth-first
// order, compressing every visited node first. Compressed-away vertices are
// therefore not part of the result.
// Expected errors during normal operations:
//   - UnknownVertexError if the vertex is unknown
func (d *DAG) ReadCausal(id narwhal.Identifier) ([]Vertex, error) {
	start, ok := d.Node(id)
	if !ok {
		return nil, UnknownVertexError{VertexID: id}
	}

	d.compressLock.Lock()
	defer d.compressLock.Unlock()

	var history []Vertex
	visited := map[narwhal.Identifier]struct{}{id: {}}
	queue := []*Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		d.compress(n)
		history = append(history, n.vertex)
		for _, parentID := range n.Parents() {
			if _, ok := visited[parentID]; ok {
				continue
			}
			visited[parentID] = struct{}{}
			queue = append(queue, d.mustNode(parentID))
		}
	}
	return history, nil
}

// mustNode resolves a parent edge. Edges only ever point at inserted nodes.
func (d *DAG) mustNode(id narwhal.Identifier) *Node {
	n, ok := d.Node(id)
	if !ok {
		panic("dag: dangling parent edge " + id.String())
	}
	return n
}

func dedup(ids []narwhal.Identifier) []narwhal.Identifier {
	seen := make(map[narwhal.Identifier]struct{}, len(ids))
	out := make([]narwhal.Identifier, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
