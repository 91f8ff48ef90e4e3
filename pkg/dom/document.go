package dom

import "sync"

// Document is a minimal in-memory page. The simulation CLI and the test
// suites use it to stand in for a real browsing context; a production
// embedder supplies its own Element implementation instead.
type Document struct {
	mu    sync.Mutex
	page  PageIdentity
	nodes map[*Node]struct{}
}

func NewDocument(page PageIdentity) *Document {
	return &Document{
		page:  page,
		nodes: make(map[*Node]struct{}),
	}
}

func (d *Document) Page() PageIdentity {
	return d.page
}

// Append attaches a new node to the document and returns its handle.
func (d *Document) Append(desc ElementDescriptor, bounds Rect) *Node {
	n := &Node{doc: d, desc: desc, bounds: bounds}
	d.mu.Lock()
	d.nodes[n] = struct{}{}
	d.mu.Unlock()
	return n
}

// Remove detaches a node. Handles stay valid but report Attached() false.
func (d *Document) Remove(n *Node) {
	d.mu.Lock()
	delete(d.nodes, n)
	d.mu.Unlock()
}

// Node is the Document-backed Element implementation.
type Node struct {
	doc    *Document
	desc   ElementDescriptor
	bounds Rect
}

func (n *Node) Descriptor() ElementDescriptor {
	return n.desc
}

func (n *Node) Attached() bool {
	n.doc.mu.Lock()
	_, ok := n.doc.nodes[n]
	n.doc.mu.Unlock()
	return ok
}

func (n *Node) Bounds() Rect {
	return n.bounds
}
