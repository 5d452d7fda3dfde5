package store

import "github.com/roach88/fusor/internal/ir"

// PlanId is the stable identifier of a stored plan: its insertion index.
type PlanId = int

// SearchKind selects how Find interprets the query operations.
type SearchKind int

const (
	// SearchExact returns plans whose full sequence equals the query.
	SearchExact SearchKind = iota + 1
	// SearchPrefixes returns plans whose sequence is a prefix of the query
	// (the query itself included), longest sequences first.
	SearchPrefixes
)

// SearchQuery asks the index for candidate plan ids.
type SearchQuery struct {
	Kind       SearchKind
	Operations []ir.OperationIr // relative ids
}

// Index maps observed operation-sequence prefixes to candidate plan ids.
//
// It is a trie keyed by operation fingerprints. Sequences that are prefixes
// or extensions of each other remain independently discoverable: each node
// records the plans terminating exactly there.
//
// The index is derived state - rebuildable by replaying Insert for every
// stored plan in id order.
type Index struct {
	root *indexNode
}

type indexNode struct {
	children map[string]*indexNode
	// plans terminating exactly at this node, in insertion order.
	plans []PlanId
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{root: newIndexNode()}
}

func newIndexNode() *indexNode {
	return &indexNode{children: make(map[string]*indexNode)}
}

// Insert registers a plan's operation sequence so future Find calls can
// locate it.
func (ix *Index) Insert(ops []ir.OperationIr, id PlanId) {
	node := ix.root
	for _, op := range ops {
		fp := op.Fingerprint()
		child, ok := node.children[fp]
		if !ok {
			child = newIndexNode()
			node.children[fp] = child
		}
		node = child
	}
	node.plans = append(node.plans, id)
}

// Find returns every plan id matching the query; empty on no match, never an
// error.
func (ix *Index) Find(query SearchQuery) []PlanId {
	fps := make([]string, len(query.Operations))
	for i, op := range query.Operations {
		fps[i] = op.Fingerprint()
	}
	return ix.findFps(query.Kind, fps)
}

// FindFingerprints is Find for callers that already hold the buffer's
// fingerprints (the stream caches them per registration).
func (ix *Index) FindFingerprints(kind SearchKind, fps []string) []PlanId {
	return ix.findFps(kind, fps)
}

func (ix *Index) findFps(kind SearchKind, fps []string) []PlanId {
	switch kind {
	case SearchExact:
		node := ix.walk(fps)
		if node == nil {
			return nil
		}
		return append([]PlanId(nil), node.plans...)

	case SearchPrefixes:
		// Collect terminating plans along the path, longest first.
		var out []PlanId
		node := ix.root
		var path []*indexNode
		path = append(path, node)
		for _, fp := range fps {
			child, ok := node.children[fp]
			if !ok {
				break
			}
			node = child
			path = append(path, node)
		}
		for i := len(path) - 1; i >= 0; i-- {
			out = append(out, path[i].plans...)
		}
		return out

	default:
		return nil
	}
}

// HasExtension reports whether some stored plan's sequence strictly extends
// the given prefix. The stream defers finalization while this holds: a longer
// known plan may still match.
func (ix *Index) HasExtension(fps []string) bool {
	node := ix.walk(fps)
	if node == nil {
		return false
	}
	return subtreeHasPlans(node, false)
}

func (ix *Index) walk(fps []string) *indexNode {
	node := ix.root
	for _, fp := range fps {
		child, ok := node.children[fp]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// subtreeHasPlans reports whether any node below (or at, when includeSelf)
// the given node terminates a plan.
func subtreeHasPlans(node *indexNode, includeSelf bool) bool {
	if includeSelf && len(node.plans) > 0 {
		return true
	}
	for _, child := range node.children {
		if subtreeHasPlans(child, true) {
			return true
		}
	}
	return false
}
