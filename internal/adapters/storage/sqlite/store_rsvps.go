package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okian/velvet/internal/domain/model"
)

// InsertRSVPTx writes one RSVP row inside tx.
func (s *Store) InsertRSVPTx(ctx context.Context, tx *sql.Tx, r model.RSVP) error {
	if !r.Status.Valid() {
		return fmt.Errorf("invalid rsvp status %q", r.Status)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO rsvps (id, event_id, user_id, rsvp_time, effective_time,
		   social_score_at_rsvp, status, checked_in, checked_in_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EventID, r.UserID, toMillis(r.RSVPTime), toMillis(r.EffectiveTime),
		r.SocialScoreAtRSVP, string(r.Status), boolToInt(r.CheckedIn), toNullMillis(r.CheckedInAt),
	)
	if err != nil {
		return fmt.Errorf("insert rsvp: %w", err)
	}
	return nil
}

// GetRSVP returns one RSVP by id.
func (s *Store) GetRSVP(ctx context.Context, id string) (model.RSVP, error) {
	return scanRSVP(s.sqlDB.QueryRowContext(ctx, selectRSVP+` WHERE id = ?`, id))
}

// GetRSVPTx returns one RSVP by id inside tx.
func (s *Store) GetRSVPTx(ctx context.Context, tx *sql.Tx, id string) (model.RSVP, error) {
	return scanRSVP(tx.QueryRowContext(ctx, selectRSVP+` WHERE id = ?`, id))
}

// CountConfirmedTx returns the number of confirmed RSVPs for an event,
// computed inside tx so the cap check and the insert that follows see the
// same state.
func (s *Store) CountConfirmedTx(ctx context.Context, tx *sql.Tx, eventID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rsvps WHERE event_id = ? AND status = ?`,
		eventID, string(model.StatusConfirmed),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return count, nil
}

// HasActiveRSVPTx reports whether the member already holds a confirmed or
// waitlisted RSVP for the event.
func (s *Store) HasActiveRSVPTx(ctx context.Context, tx *sql.Tx, eventID, userID string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rsvps
		 WHERE event_id = ? AND user_id = ? AND status IN (?, ?)`,
		eventID, userID, string(model.StatusConfirmed), string(model.StatusWaitlisted),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check active rsvp: %w", err)
	}
	return count > 0, nil
}

// ListActiveByEvent returns confirmed and waitlisted RSVPs for an event,
// waitlist-ordered (effective time, submission time, id).
func (s *Store) ListActiveByEvent(ctx context.Context, eventID string) ([]model.RSVP, error) {
	return s.queryRSVPs(ctx, s.sqlDB,
		selectRSVP+` WHERE event_id = ? AND status IN (?, ?) ORDER BY effective_time, rsvp_time, id`,
		eventID, string(model.StatusConfirmed), string(model.StatusWaitlisted),
	)
}

// NextWaitlistedTx returns the highest-priority waitlisted RSVP for an event
// inside tx, or ErrNotFound when the waitlist is empty.
func (s *Store) NextWaitlistedTx(ctx context.Context, tx *sql.Tx, eventID string) (model.RSVP, error) {
	return scanRSVP(tx.QueryRowContext(ctx,
		selectRSVP+` WHERE event_id = ? AND status = ?
		 ORDER BY effective_time, rsvp_time, id LIMIT 1`,
		eventID, string(model.StatusWaitlisted),
	))
}

// ListConfirmedUncheckedTx returns RSVPs still confirmed without a check-in,
// the sweep's working set.
func (s *Store) ListConfirmedUncheckedTx(ctx context.Context, tx *sql.Tx, eventID string) ([]model.RSVP, error) {
	return s.queryRSVPs(ctx, tx,
		selectRSVP+` WHERE event_id = ? AND status = ? AND checked_in = 0 ORDER BY id`,
		eventID, string(model.StatusConfirmed),
	)
}

// UpdateRSVPStatusTx transitions one RSVP inside tx.
func (s *Store) UpdateRSVPStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.RSVPStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid rsvp status %q", status)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE rsvps SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update rsvp status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rsvp status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rsvp %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetCheckedInTx marks one RSVP as checked in at the given instant.
func (s *Store) SetCheckedInTx(ctx context.Context, tx *sql.Tx, id string, at int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE rsvps SET checked_in = 1, checked_in_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("set checked in: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set checked in: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rsvp %s: %w", id, ErrNotFound)
	}
	return nil
}

// WaitlistDepth returns the number of waitlisted RSVPs on open events.
func (s *Store) WaitlistDepth(ctx context.Context) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rsvps r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.status = ? AND e.status = ?`,
		string(model.StatusWaitlisted), string(model.EventOpen),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("waitlist depth: %w", err)
	}
	return count, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryRSVPs(ctx context.Context, q querier, query string, args ...any) ([]model.RSVP, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rsvps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RSVP
	for rows.Next() {
		r, err := scanRSVPRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return out, nil
}

const selectRSVP = `SELECT id, event_id, user_id, rsvp_time, effective_time,
  social_score_at_rsvp, status, checked_in, checked_in_at FROM rsvps`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRSVP(row *sql.Row) (model.RSVP, error) {
	r, err := scanRSVPRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RSVP{}, fmt.Errorf("rsvp: %w", ErrNotFound)
	}
	return r, err
}

func scanRSVPRow(sc rowScanner) (model.RSVP, error) {
	var (
		r                       model.RSVP
		rsvpTime, effectiveTime int64
		status                  string
		checkedIn               int
		checkedInAt             sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.EventID, &r.UserID, &rsvpTime, &effectiveTime,
		&r.SocialScoreAtRSVP, &status, &checkedIn, &checkedInAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RSVP{}, err
		}
		return model.RSVP{}, fmt.Errorf("scan rsvp: %w", err)
	}
	r.RSVPTime = fromMillis(rsvpTime)
	r.EffectiveTime = fromMillis(effectiveTime)
	r.Status = model.RSVPStatus(status)
	r.CheckedIn = checkedIn != 0
	r.CheckedInAt = fromNullMillis(checkedInAt)
	return r, nil
}
