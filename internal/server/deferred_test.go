package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAwait_CancelledContext(t *testing.T) {
	d := newDeferred[[]float32]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
