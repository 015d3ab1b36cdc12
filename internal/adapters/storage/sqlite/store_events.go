package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/velvet/internal/domain/model"
)

// CreateEvent inserts one event row.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid event status %q", e.Status)
	}
	if e.MaxAttendees <= 0 {
		return fmt.Errorf("max attendees must be greater than zero")
	}
	if !e.EndTime.After(e.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, title, status, start_time, end_time, max_attendees, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, string(e.Status),
		toMillis(e.StartTime), toMillis(e.EndTime), e.MaxAttendees, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns one event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return scanEvent(s.sqlDB.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id))
}

// GetEventTx returns one event by id inside tx. The engine reads the event
// snapshot through this so cap and timing are consistent with the writes
// that follow in the same tx.
func (s *Store) GetEventTx(ctx context.Context, tx *sql.Tx, id string) (model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id))
}

// SetEventStatus moves an event between lifecycle states.
func (s *Store) SetEventStatus(ctx context.Context, id string, status model.EventStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid event status %q", status)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE events SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountOpenEvents returns the number of events currently accepting RSVPs.
func (s *Store) CountOpenEvents(ctx context.Context) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM events WHERE status = ?`, string(model.EventOpen)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open events: %w", err)
	}
	return count, nil
}

// ListSweepCandidates returns ids of ended events that still hold confirmed,
// unchecked RSVPs.
func (s *Store) ListSweepCandidates(ctx context.Context, now int64) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT DISTINCT e.id FROM events e
		 JOIN rsvps r ON r.event_id = e.id
		 WHERE e.end_time <= ? AND r.status = ? AND r.checked_in = 0
		 ORDER BY e.end_time`,
		now, string(model.StatusConfirmed),
	)
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sweep candidate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep candidates: %w", err)
	}
	return ids, nil
}

const selectEvent = `SELECT id, title, status, start_time, end_time, max_attendees, created_at FROM events`

func scanEvent(row *sql.Row) (model.Event, error) {
	var (
		e                             model.Event
		status                        string
		startTime, endTime, createdAt int64
	)
	err := row.Scan(&e.ID, &e.Title, &status, &startTime, &endTime, &e.MaxAttendees, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event: %w", ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.Status = model.EventStatus(status)
	e.StartTime = fromMillis(startTime)
	e.EndTime = fromMillis(endTime)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}
