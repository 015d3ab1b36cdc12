// Package ledger maintains the append-only social score ledger.
//
// The ledger is the source of truth: the cached score on the user row is a
// materialized view updated in the same transaction as every append, never
// mutated independently.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/velvet/internal/adapters/storage/sqlite"
	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/locks"
	"github.com/okian/velvet/pkg/metrics"
)

// Store is the storage surface the ledger writes through.
type Store interface {
	GetUserTx(ctx context.Context, tx *sql.Tx, id string) (model.User, error)
	UpdateUserScoreTx(ctx context.Context, tx *sql.Tx, id string, score float64) error
	AppendScoreTx(ctx context.Context, tx *sql.Tx, e model.ScoreEntry) error
	GetOutcomeTx(ctx context.Context, tx *sql.Tx, rsvpID string, reason model.Reason) (model.ScoreEntry, error)
}

// Delta describes one requested score mutation.
type Delta struct {
	UserID   string
	EventID  string // empty for non-event adjustments
	RSVPID   string // the seat an outcome settles; empty for manual deltas
	Reason   model.Reason
	Amount   float64
	IssuedBy string // empty for system-issued
	At       time.Time
}

// Ledger appends score deltas and keeps the cached score consistent.
type Ledger struct {
	store Store
	users *locks.Registry
}

// New creates a Ledger over store.
func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		users: locks.NewRegistry(),
	}
}

// Apply appends d inside the caller's transaction and updates the cached
// score. Outcome reasons are applied at most once per (rsvp, reason): a
// repeat settlement of the same seat is a no-op returning the
// already-recorded score with applied=false, while a fresh RSVP after a
// cancel starts a new lifecycle and is penalized again. The per-user lock
// serializes read-append-update sequences for one member.
func (l *Ledger) Apply(ctx context.Context, tx *sql.Tx, d Delta) (newScore float64, applied bool, err error) {
	if !d.Reason.Valid() {
		return 0, false, fmt.Errorf("invalid reason %q", d.Reason)
	}

	unlock := l.users.Lock(d.UserID)
	defer unlock()

	if d.Reason.Outcome() && d.RSVPID != "" {
		prior, err := l.store.GetOutcomeTx(ctx, tx, d.RSVPID, d.Reason)
		if err == nil {
			metrics.RecordScoreDeltaSkip()
			return prior.NewScore, false, nil
		}
		if !errors.Is(err, sqlite.ErrNotFound) {
			return 0, false, fmt.Errorf("idempotency check: %w", err)
		}
	}

	user, err := l.store.GetUserTx(ctx, tx, d.UserID)
	if err != nil {
		return 0, false, fmt.Errorf("read current score: %w", err)
	}

	newScore = user.SocialScore + d.Amount
	entry := model.ScoreEntry{
		ID:        uuid.NewString(),
		UserID:    d.UserID,
		EventID:   d.EventID,
		RSVPID:    d.RSVPID,
		Delta:     d.Amount,
		Reason:    d.Reason,
		NewScore:  newScore,
		CreatedBy: d.IssuedBy,
		CreatedAt: d.At,
	}
	if err := l.store.AppendScoreTx(ctx, tx, entry); err != nil {
		metrics.RecordLedgerAppendError()
		return 0, false, err
	}
	if err := l.store.UpdateUserScoreTx(ctx, tx, d.UserID, newScore); err != nil {
		metrics.RecordLedgerAppendError()
		return 0, false, err
	}

	metrics.RecordScoreDelta(string(d.Reason))
	return newScore, true, nil
}
