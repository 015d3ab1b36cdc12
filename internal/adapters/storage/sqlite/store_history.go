package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okian/velvet/internal/domain/model"
)

// AppendHistoryTx writes one audit trail row inside tx. The trail is
// append-only; nothing here updates or deletes.
func (s *Store) AppendHistoryTx(ctx context.Context, tx *sql.Tx, h model.HistoryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO rsvp_history (id, rsvp_id, event_id, user_id, action,
		   from_status, to_status, minutes_before_event, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.RSVPID, h.EventID, h.UserID, h.Action,
		toNullString(string(h.FromStatus)), string(h.ToStatus),
		h.MinutesBeforeEvent, toMillis(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistoryByRSVP returns the audit trail for one RSVP, creation order.
func (s *Store) ListHistoryByRSVP(ctx context.Context, rsvpID string) ([]model.HistoryEntry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, rsvp_id, event_id, user_id, action, from_status, to_status,
		   minutes_before_event, created_at
		 FROM rsvp_history WHERE rsvp_id = ? ORDER BY created_at, id`,
		rsvpID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			h          model.HistoryEntry
			fromStatus sql.NullString
			toStatus   string
			createdAt  int64
		)
		if err := rows.Scan(&h.ID, &h.RSVPID, &h.EventID, &h.UserID, &h.Action,
			&fromStatus, &toStatus, &h.MinutesBeforeEvent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if fromStatus.Valid {
			h.FromStatus = model.RSVPStatus(fromStatus.String)
		}
		h.ToStatus = model.RSVPStatus(toStatus)
		h.CreatedAt = fromMillis(createdAt)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// AppendScoreTx writes one ledger row inside tx.
func (s *Store) AppendScoreTx(ctx context.Context, tx *sql.Tx, e model.ScoreEntry) error {
	if !e.Reason.Valid() {
		return fmt.Errorf("invalid reason %q", e.Reason)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO score_history (id, user_id, event_id, rsvp_id, delta, reason, new_score, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, toNullString(e.EventID), toNullString(e.RSVPID), e.Delta, string(e.Reason),
		e.NewScore, toNullString(e.CreatedBy), toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append score entry: %w", err)
	}
	return nil
}

// GetOutcomeTx returns the existing ledger row for an (rsvp, reason) pair
// inside tx, or ErrNotFound. The ledger's idempotency guard reads through
// this; a cancelled-and-resubmitted seat gets a fresh RSVP id and so a
// fresh idempotency scope.
func (s *Store) GetOutcomeTx(ctx context.Context, tx *sql.Tx, rsvpID string, reason model.Reason) (model.ScoreEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, rsvp_id, delta, reason, new_score, created_by, created_at
		 FROM score_history WHERE rsvp_id = ? AND reason = ?
		 ORDER BY created_at DESC LIMIT 1`,
		rsvpID, string(reason),
	)
	return scanScoreEntry(row)
}

// ListScoreHistoryByUser returns the newest limit ledger rows for a member.
func (s *Store) ListScoreHistoryByUser(ctx context.Context, userID string, limit int) ([]model.ScoreEntry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, user_id, event_id, rsvp_id, delta, reason, new_score, created_by, created_at
		 FROM score_history WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScoreEntry
	for rows.Next() {
		e, err := scanScoreEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history: %w", err)
	}
	return out, nil
}

func scanScoreEntry(sc rowScanner) (model.ScoreEntry, error) {
	var (
		e                          model.ScoreEntry
		eventID, rsvpID, createdBy sql.NullString
		reason                     string
		createdAt                  int64
	)
	err := sc.Scan(&e.ID, &e.UserID, &eventID, &rsvpID, &e.Delta, &reason, &e.NewScore, &createdBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreEntry{}, fmt.Errorf("score entry: %w", ErrNotFound)
	}
	if err != nil {
		return model.ScoreEntry{}, fmt.Errorf("scan score entry: %w", err)
	}
	e.EventID = eventID.String
	e.RSVPID = rsvpID.String
	e.CreatedBy = createdBy.String
	e.Reason = model.Reason(reason)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}
