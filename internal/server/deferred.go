package server

import "context"

// Deferred is a read result that is awaited only when the caller actually
// needs the data. The server resolves it during the read call itself (the
// drain is synchronous), but callers hold the future and may materialize it
// later, or on another goroutine.
type Deferred[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

func (d *Deferred[T]) resolve(val T, err error) {
	d.val = val
	d.err = err
	close(d.done)
}

// Await blocks until the value is available or the context is cancelled.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
