// Package handle owns the mapping from tensor ids to backend-resident
// handles for one device.
//
// The container is the only shared mutable resource crossing the stream
// core's boundary: a tensor id is only registered by its producer's drain and
// only read after that drain completes. The core itself never inspects a
// handle - it only tracks identity.
package handle

import "github.com/roach88/fusor/internal/ir"

// Container maps tensor ids to opaque backend handles and allocates ids.
//
// Not safe for concurrent mutation: the owning device runtime serializes all
// access (single-writer model).
type Container struct {
	next    ir.TensorId
	handles map[ir.TensorId]any
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{handles: make(map[ir.TensorId]any)}
}

// CreateUninit allocates a fresh tensor id with no handle attached yet. The
// producing operation's drain registers the handle later.
func (c *Container) CreateUninit() ir.TensorId {
	id := c.next
	c.next++
	return id
}

// Register attaches (or replaces) the backend handle for a tensor id.
func (c *Container) Register(id ir.TensorId, h any) {
	c.handles[id] = h
}

// Get returns the handle for a tensor id.
func (c *Container) Get(id ir.TensorId) (any, bool) {
	h, ok := c.handles[id]
	return h, ok
}

// Free drops the handle for a tensor id. Freeing an unknown id is a no-op:
// a Drop operation may target a tensor that was never materialized.
func (c *Container) Free(id ir.TensorId) {
	delete(c.handles, id)
}

// MarkRead records that a tensor left the system (copied out to host).
// Read-write operands lose their exclusive-ownership assumption, so their
// handles are released once read externally; read-only operands keep theirs.
func (c *Container) MarkRead(t ir.TensorIr) {
	if t.Status == ir.StatusReadWrite {
		c.Free(t.ID)
	}
}

// Len returns the number of live handles. Diagnostic only.
func (c *Container) Len() int {
	return len(c.handles)
}
