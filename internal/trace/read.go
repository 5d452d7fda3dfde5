package trace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/fusor/internal/store"
	"github.com/roach88/fusor/internal/stream"
)

// Session describes one recorded runtime session.
type Session struct {
	ID        string
	Device    string
	StartedAt string
}

// Event is one recorded lifecycle event. Fields not applicable to the kind
// are zero; PlanId is -1 when the event has no plan.
type Event struct {
	Seq         int64
	Stream      stream.StreamId
	Kind        EventKind
	OpKind      string
	Fingerprint string
	PlanId      store.PlanId
	Operations  int
	Strategy    string
}

// Sessions returns every recorded session, oldest first. Returns an empty
// slice (not nil) when the log is empty.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device, started_at
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Device, &sess.StartedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadSession returns a session's events in recorded order. Returns an empty
// slice (not nil) for an unknown session.
func (s *Store) ReadSession(ctx context.Context, session string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, stream_id, kind, op_kind, fingerprint, plan_id, operations, strategy
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		e           Event
		streamID    string
		kind        string
		opKind      sql.NullString
		fingerprint sql.NullString
		planID      sql.NullInt64
		strategy    sql.NullString
	)
	err := rows.Scan(&e.Seq, &streamID, &kind, &opKind, &fingerprint, &planID, &e.Operations, &strategy)
	if err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}

	e.Stream = stream.StreamId(streamID)
	e.Kind = EventKind(kind)
	e.OpKind = opKind.String
	e.Fingerprint = fingerprint.String
	e.Strategy = strategy.String
	e.PlanId = -1
	if planID.Valid {
		e.PlanId = store.PlanId(planID.Int64)
	}
	return e, nil
}
