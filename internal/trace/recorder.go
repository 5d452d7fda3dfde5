package trace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
	"github.com/roach88/fusor/internal/stream"
)

// EventKind labels one trace event row.
type EventKind string

const (
	EventOperationRegistered EventKind = "op_registered"
	EventPlanCreated         EventKind = "plan_created"
	EventPlanReused          EventKind = "plan_reused"
	EventStreamDrained       EventKind = "stream_drained"
)

// Recorder implements stream.Observer by appending events to the trace
// store under one session.
//
// Not safe for concurrent use: the runtime that invokes it is single-writer.
// Write failures are logged, never surfaced - tracing is diagnostic and must
// not alter execution.
type Recorder struct {
	store   *Store
	session string
	seq     int64
}

// NewRecorder starts a new session on the given device and returns its
// recorder. Session ids are UUIDv7, so they sort by start time.
func NewRecorder(s *Store, device string) (*Recorder, error) {
	session := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.Exec(`INSERT INTO sessions (id, device) VALUES (?, ?)`, session, device)
	if err != nil {
		return nil, fmt.Errorf("start trace session: %w", err)
	}
	slog.Info("trace session started", "session", session, "device", device)
	return &Recorder{store: s, session: session}, nil
}

// Session returns the session id events are recorded under.
func (r *Recorder) Session() string {
	return r.session
}

// OperationRegistered implements stream.Observer.
func (r *Recorder) OperationRegistered(id stream.StreamId, op ir.OperationIr) {
	r.write(Event{
		Stream:      id,
		Kind:        EventOperationRegistered,
		OpKind:      op.Kind.String(),
		Fingerprint: op.Fingerprint(),
		PlanId:      -1,
	})
}

// PlanCreated implements stream.Observer.
func (r *Recorder) PlanCreated(id stream.StreamId, plan store.PlanId, operations int, strategy string) {
	r.write(Event{
		Stream:     id,
		Kind:       EventPlanCreated,
		PlanId:     plan,
		Operations: operations,
		Strategy:   strategy,
	})
}

// PlanReused implements stream.Observer.
func (r *Recorder) PlanReused(id stream.StreamId, plan store.PlanId) {
	r.write(Event{
		Stream: id,
		Kind:   EventPlanReused,
		PlanId: plan,
	})
}

// StreamDrained implements stream.Observer.
func (r *Recorder) StreamDrained(id stream.StreamId, executed int) {
	r.write(Event{
		Stream:     id,
		Kind:       EventStreamDrained,
		Operations: executed,
		PlanId:     -1,
	})
}

func (r *Recorder) write(e Event) {
	e.Seq = r.seq
	r.seq++

	var planID any
	if e.PlanId >= 0 {
		planID = int64(e.PlanId)
	}

	_, err := r.store.db.ExecContext(context.Background(), `
		INSERT INTO events
		(session_id, seq, stream_id, kind, op_kind, fingerprint, plan_id, operations, strategy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.session,
		e.Seq,
		string(e.Stream),
		string(e.Kind),
		nullable(e.OpKind),
		nullable(e.Fingerprint),
		planID,
		e.Operations,
		nullable(e.Strategy),
	)
	if err != nil {
		slog.Error("trace write failed",
			"session", r.session,
			"seq", e.Seq,
			"kind", string(e.Kind),
			"error", err,
		)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
