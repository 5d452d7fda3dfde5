package stream

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StreamId identifies one logical execution stream on a device.
type StreamId string

// IdGenerator produces stream ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IdGenerator interface {
	Generate() StreamId
}

// UUIDv7Generator generates time-sortable UUIDv7 stream ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making ids
// sortable by creation time, which is helpful when reading traces.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() StreamId {
	return StreamId(uuid.Must(uuid.NewV7()).String())
}

// FixedGenerator returns predetermined stream ids for testing.
//
// This enables deterministic test execution and golden trace comparison.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal
// mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []StreamId
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed - a test asking for more streams
// than it declared is a test bug.
func NewFixedGenerator(ids ...StreamId) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() StreamId {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("fixed generator exhausted after %d ids", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
