package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusor/internal/ir"
)

func TestContainer_CreateRegisterGet(t *testing.T) {
	c := NewContainer()

	a := c.CreateUninit()
	b := c.CreateUninit()
	assert.NotEqual(t, a, b, "ids are unique")

	_, ok := c.Get(a)
	assert.False(t, ok, "uninit tensor has no handle yet")

	c.Register(a, []float32{1, 2, 3})
	h, ok := c.Get(a)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, h)
}

func TestContainer_FreeIsIdempotent(t *testing.T) {
	c := NewContainer()
	id := c.CreateUninit()
	c.Register(id, "h")

	c.Free(id)
	_, ok := c.Get(id)
	assert.False(t, ok)

	c.Free(id) // unknown id, no-op
	assert.Equal(t, 0, c.Len())
}

func TestContainer_MarkRead(t *testing.T) {
	c := NewContainer()
	ro := c.CreateUninit()
	rw := c.CreateUninit()
	c.Register(ro, "ro")
	c.Register(rw, "rw")

	c.MarkRead(ir.TensorIr{ID: ro, Status: ir.StatusReadOnly})
	_, ok := c.Get(ro)
	assert.True(t, ok, "read-only operand keeps its handle")

	c.MarkRead(ir.TensorIr{ID: rw, Status: ir.StatusReadWrite})
	_, ok = c.Get(rw)
	assert.False(t, ok, "read-write operand is released after an external read")
}
