package server

import (
	"fmt"
	"log/slog"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
	"github.com/roach88/fusor/internal/stream"
)

// Server is the runtime front door for one device.
//
// All mutations are synchronous and run on the caller's goroutine; the
// server is not safe for concurrent use. The only asynchronous surface is
// the Deferred values returned by reads.
type Server[O stream.Optimization] struct {
	device  Device
	router  *stream.Router[O]
	handles *handle.Container
	ids     stream.IdGenerator
}

// Option configures a server.
type Option[O stream.Optimization] func(*settings[O])

type settings[O stream.Optimization] struct {
	ids        stream.IdGenerator
	routerOpts []stream.RouterOption[O]
}

// WithIdGenerator overrides stream id generation. Tests use a fixed
// generator for deterministic stream ids.
func WithIdGenerator[O stream.Optimization](g stream.IdGenerator) Option[O] {
	return func(s *settings[O]) {
		s.ids = g
	}
}

// WithObserver attaches a lifecycle observer (e.g. the trace recorder).
func WithObserver[O stream.Optimization](obs stream.Observer) Option[O] {
	return func(s *settings[O]) {
		s.routerOpts = append(s.routerOpts, stream.WithObserver[O](obs))
	}
}

// WithMaxBuffer overrides the per-stream buffer length that forces a sync
// point.
func WithMaxBuffer[O stream.Optimization](n int) Option[O] {
	return func(s *settings[O]) {
		s.routerOpts = append(s.routerOpts, stream.WithMaxBuffer[O](n))
	}
}

// New creates a server for one device. Each server owns its own plan store
// and handle container; there is no global state.
func New[O stream.Optimization](device Device, explorer stream.Explorer[O], opts ...Option[O]) *Server[O] {
	cfg := settings[O]{ids: stream.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Info("server created", "device", device.Name())
	return &Server[O]{
		device:  device,
		router:  stream.NewRouter(explorer, cfg.routerOpts...),
		handles: handle.NewContainer(),
		ids:     cfg.ids,
	}
}

// NewStream allocates a fresh stream id.
func (s *Server[O]) NewStream() stream.StreamId {
	return s.ids.Generate()
}

// CreateTensor allocates a tensor id with no handle yet. The producing
// operation's drain registers the handle.
func (s *Server[O]) CreateTensor() ir.TensorId {
	return s.handles.CreateUninit()
}

// Register routes one operation to its stream. The operation's side effect
// runs later, when the stream drains or a stored plan's trigger fires.
func (s *Server[O]) Register(id stream.StreamId, op ir.OperationIr, operation stream.Operation) {
	s.router.Register(id, op, operation, s.handles)
}

// Drain forces execution of everything buffered on one stream.
func (s *Server[O]) Drain(id stream.StreamId) {
	s.router.Drain(s.handles, id)
}

// ReadFloat drains the tensor's stream and returns its float data.
func (s *Server[O]) ReadFloat(id stream.StreamId, t ir.TensorIr) *Deferred[[]float32] {
	d := newDeferred[[]float32]()
	data, err := s.read(id, t, ir.F32)
	d.resolve(data.Float, err)
	return d
}

// ReadInt drains the tensor's stream and returns its int data.
func (s *Server[O]) ReadInt(id stream.StreamId, t ir.TensorIr) *Deferred[[]int32] {
	d := newDeferred[[]int32]()
	data, err := s.read(id, t, ir.I32)
	d.resolve(data.Int, err)
	return d
}

// ReadBool drains the tensor's stream and returns its bool data.
func (s *Server[O]) ReadBool(id stream.StreamId, t ir.TensorIr) *Deferred[[]bool] {
	d := newDeferred[[]bool]()
	data, err := s.read(id, t, ir.Bool)
	d.resolve(data.Bool, err)
	return d
}

// ReadQuantized drains the tensor's stream and returns its raw quantized
// bytes.
func (s *Server[O]) ReadQuantized(id stream.StreamId, t ir.TensorIr) *Deferred[[]byte] {
	d := newDeferred[[]byte]()
	data, err := s.read(id, t, ir.Q8)
	d.resolve(data.Quantized, err)
	return d
}

// read is the shared read path: drain the producing stream so the handle
// exists, copy out, then mark the read so read-write handles are released.
func (s *Server[O]) read(id stream.StreamId, t ir.TensorIr, want ir.DType) (TensorData, error) {
	s.router.Drain(s.handles, id)
	data, err := s.device.Read(s.handles, t)
	if err != nil {
		return TensorData{}, fmt.Errorf("read tensor %d on stream %s: %w", t.ID, id, err)
	}
	if data.DType != want {
		return TensorData{}, fmt.Errorf("read tensor %d on stream %s: tensor is %s, wanted %s", t.ID, id, data.DType, want)
	}
	s.router.MarkRead(id, t, s.handles)
	slog.Debug("tensor read", "device", s.device.Name(), "stream", id, "tensor", uint64(t.ID))
	return data, nil
}

// Store exposes the shared plan store for diagnostics.
func (s *Server[O]) Store() *store.Store[O] {
	return s.router.Store()
}

// Summaries returns one summary per stored plan.
func (s *Server[O]) Summaries() []store.PlanSummary {
	return s.router.Store().Summaries()
}

// Stats aggregates plan-store statistics.
func (s *Server[O]) Stats() store.Stats {
	return s.router.Store().ComputeStats()
}

// Buffered returns the buffered operations of every non-empty stream.
// Diagnostic only.
func (s *Server[O]) Buffered() map[stream.StreamId][]ir.OperationIr {
	return s.router.Buffered()
}

// NumHandles returns the number of live backend handles. Diagnostic only.
func (s *Server[O]) NumHandles() int {
	return s.handles.Len()
}
