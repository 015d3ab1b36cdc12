// Package admission implements the reputation-weighted admission engine:
// placement under a hard attendee cap, waitlist promotion, check-in, and the
// end-of-event no-show sweep, each recorded in the audit trail and, where an
// outcome warrants it, the score ledger.
package admission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/velvet/internal/adapters/storage/sqlite"
	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/domain/policy"
	"github.com/okian/velvet/internal/domain/rank"
	"github.com/okian/velvet/internal/ledger"
	"github.com/okian/velvet/internal/locks"
	"github.com/okian/velvet/pkg/logger"
	"github.com/okian/velvet/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultTxAttempts   = 3
	defaultRetryBackoff = 25 * time.Millisecond
)

// Store is the storage surface the engine operates on. *sqlite.Store
// satisfies it.
type Store interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)

	GetEvent(ctx context.Context, id string) (model.Event, error)
	GetEventTx(ctx context.Context, tx *sql.Tx, id string) (model.Event, error)

	GetUserTx(ctx context.Context, tx *sql.Tx, id string) (model.User, error)

	GetRSVP(ctx context.Context, id string) (model.RSVP, error)
	GetRSVPTx(ctx context.Context, tx *sql.Tx, id string) (model.RSVP, error)
	InsertRSVPTx(ctx context.Context, tx *sql.Tx, r model.RSVP) error
	CountConfirmedTx(ctx context.Context, tx *sql.Tx, eventID string) (int, error)
	HasActiveRSVPTx(ctx context.Context, tx *sql.Tx, eventID, userID string) (bool, error)
	ListActiveByEvent(ctx context.Context, eventID string) ([]model.RSVP, error)
	NextWaitlistedTx(ctx context.Context, tx *sql.Tx, eventID string) (model.RSVP, error)
	ListConfirmedUncheckedTx(ctx context.Context, tx *sql.Tx, eventID string) ([]model.RSVP, error)
	UpdateRSVPStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.RSVPStatus) error
	SetCheckedInTx(ctx context.Context, tx *sql.Tx, id string, at int64) error

	AppendHistoryTx(ctx context.Context, tx *sql.Tx, h model.HistoryEntry) error
}

// Ledger applies score deltas inside the engine's transaction.
type Ledger interface {
	Apply(ctx context.Context, tx *sql.Tx, d ledger.Delta) (newScore float64, applied bool, err error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRanker sets the effective-time ranker.
func WithRanker(r *rank.Ranker) Option {
	return func(e *Engine) {
		if r != nil {
			e.ranker = r
		}
	}
}

// WithPolicy sets the score and timing policy table.
func WithPolicy(p *policy.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTxAttempts bounds the retry budget for contended transactions.
func WithTxAttempts(attempts int) Option {
	return func(e *Engine) {
		if attempts > 0 {
			e.txAttempts = attempts
		}
	}
}

// Engine orchestrates RSVP state transitions. Every operation touching one
// event runs under that event's mutex, and all writes of one operation share
// a single transaction.
type Engine struct {
	store  Store
	ledger Ledger
	ranker *rank.Ranker
	policy *policy.Policy
	events *locks.Registry

	txAttempts   int
	retryBackoff time.Duration

	logger logger.Logger
}

// New creates an Engine over store and ledger.
func New(store Store, led Ledger, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		ledger:       led,
		ranker:       rank.New(),
		policy:       policy.New(),
		events:       locks.NewRegistry(),
		txAttempts:   defaultTxAttempts,
		retryBackoff: defaultRetryBackoff,
		logger:       logger.Get().Named("admission"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit places a new RSVP for (eventID, userID) at instant now: confirmed
// while the cap has room, waitlisted otherwise. Confirmation, once granted,
// is never revoked by a later submission with a better effective time.
func (e *Engine) Submit(ctx context.Context, eventID, userID string, now time.Time) (model.RSVP, error) {
	start := time.Now()
	defer func() { metrics.RecordAdmissionLatency(float64(time.Since(start).Milliseconds())) }()

	unlock := e.events.Lock(eventID)
	defer unlock()

	var created model.RSVP
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := e.store.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return notFound(err)
		}
		if ev.Status != model.EventOpen {
			return fmt.Errorf("event %s is %s: %w", ev.ID, ev.Status, ErrCapacityPolicy)
		}
		if !now.Before(ev.StartTime) {
			return fmt.Errorf("event %s already started: %w", ev.ID, ErrCapacityPolicy)
		}

		exists, err := e.store.HasActiveRSVPTx(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("user %s on event %s: %w", userID, eventID, ErrDuplicateRSVP)
		}

		user, err := e.store.GetUserTx(ctx, tx, userID)
		if err != nil {
			return notFound(err)
		}

		count, err := e.store.CountConfirmedTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		status := model.StatusConfirmed
		if count >= ev.MaxAttendees {
			status = model.StatusWaitlisted
		}

		created = model.RSVP{
			ID:                uuid.NewString(),
			EventID:           eventID,
			UserID:            userID,
			RSVPTime:          now,
			EffectiveTime:     e.ranker.EffectiveTime(now, user.SocialScore),
			SocialScoreAtRSVP: user.SocialScore,
			Status:            status,
		}
		if err := e.store.InsertRSVPTx(ctx, tx, created); err != nil {
			return err
		}
		return e.record(ctx, tx, created, ev, model.ActionSubmit, "", status, now)
	})
	if err != nil {
		return model.RSVP{}, err
	}

	metrics.RecordRSVPSubmission(string(created.Status))
	e.logger.Debug(ctx, "rsvp submitted",
		logger.String("rsvpID", created.ID),
		logger.String("eventID", eventID),
		logger.String("userID", userID),
		logger.String("status", string(created.Status)),
	)
	return created, nil
}

// Cancel transitions a confirmed or waitlisted RSVP to cancelled. A freed
// confirmed slot promotes the highest-priority waitlisted RSVP, and a
// confirmed cancellation is scored by its timing window.
func (e *Engine) Cancel(ctx context.Context, rsvpID string, now time.Time, actorID string) error {
	start := time.Now()
	defer func() { metrics.RecordAdmissionLatency(float64(time.Since(start).Milliseconds())) }()

	current, err := e.store.GetRSVP(ctx, rsvpID)
	if err != nil {
		return notFound(err)
	}

	unlock := e.events.Lock(current.EventID)
	defer unlock()

	var (
		window   string
		promoted bool
	)
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		rsvp, err := e.store.GetRSVPTx(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err)
		}
		if !rsvp.Status.Active() {
			return fmt.Errorf("rsvp %s is %s: %w", rsvp.ID, rsvp.Status, ErrInvalidTransition)
		}

		ev, err := e.store.GetEventTx(ctx, tx, rsvp.EventID)
		if err != nil {
			return notFound(err)
		}
		if rsvp.CheckedIn && !now.Before(ev.EndTime) {
			// The member attended; their arrival was already settled and
			// the event is over. Nothing is left to cancel.
			return fmt.Errorf("rsvp %s already attended event %s: %w", rsvp.ID, ev.ID, ErrInvalidTransition)
		}

		reason := e.policy.CancelReason(now, ev.StartTime)
		window = "early"
		if reason == model.ReasonLateCancel {
			window = "late"
		}

		wasConfirmed := rsvp.Status == model.StatusConfirmed
		if err := e.store.UpdateRSVPStatusTx(ctx, tx, rsvp.ID, model.StatusCancelled); err != nil {
			return err
		}
		if err := e.record(ctx, tx, rsvp, ev, model.ActionCancel, rsvp.Status, model.StatusCancelled, now); err != nil {
			return err
		}

		if !wasConfirmed {
			// Waitlisted members occupy no scarce slot; no promotion,
			// no penalty.
			return nil
		}

		next, err := e.store.NextWaitlistedTx(ctx, tx, rsvp.EventID)
		switch {
		case err == nil:
			if err := e.store.UpdateRSVPStatusTx(ctx, tx, next.ID, model.StatusConfirmed); err != nil {
				return err
			}
			if err := e.record(ctx, tx, next, ev, model.ActionPromote, model.StatusWaitlisted, model.StatusConfirmed, now); err != nil {
				return err
			}
			promoted = true
		case errors.Is(err, sqlite.ErrNotFound):
			// Empty waitlist; the slot stays free.
		default:
			return err
		}

		_, _, err = e.ledger.Apply(ctx, tx, ledger.Delta{
			UserID:   rsvp.UserID,
			EventID:  rsvp.EventID,
			RSVPID:   rsvp.ID,
			Reason:   reason,
			Amount:   e.policy.Delta(reason),
			IssuedBy: actorID,
			At:       now,
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.RecordRSVPCancellation(window)
	if promoted {
		metrics.RecordPromotion()
	}
	return nil
}

// CheckIn marks a confirmed RSVP as arrived and scores the arrival.
func (e *Engine) CheckIn(ctx context.Context, rsvpID string, now time.Time) error {
	start := time.Now()
	defer func() { metrics.RecordAdmissionLatency(float64(time.Since(start).Milliseconds())) }()

	current, err := e.store.GetRSVP(ctx, rsvpID)
	if err != nil {
		return notFound(err)
	}

	unlock := e.events.Lock(current.EventID)
	defer unlock()

	var arrival model.Reason
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		rsvp, err := e.store.GetRSVPTx(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err)
		}
		if rsvp.Status != model.StatusConfirmed || rsvp.CheckedIn {
			return fmt.Errorf("rsvp %s is %s (checked_in=%t): %w",
				rsvp.ID, rsvp.Status, rsvp.CheckedIn, ErrInvalidTransition)
		}

		ev, err := e.store.GetEventTx(ctx, tx, rsvp.EventID)
		if err != nil {
			return notFound(err)
		}
		if !e.policy.InCheckInWindow(now, ev.StartTime, ev.EndTime) {
			return fmt.Errorf("event %s window %s..%s: %w",
				ev.ID, ev.StartTime.Format(time.RFC3339), ev.EndTime.Format(time.RFC3339), ErrCheckInWindow)
		}

		if err := e.store.SetCheckedInTx(ctx, tx, rsvp.ID, now.UTC().UnixMilli()); err != nil {
			return err
		}
		if err := e.record(ctx, tx, rsvp, ev, model.ActionCheckIn, model.StatusConfirmed, model.StatusConfirmed, now); err != nil {
			return err
		}

		arrival = e.policy.ArrivalReason(now, ev.StartTime)
		_, _, err = e.ledger.Apply(ctx, tx, ledger.Delta{
			UserID:  rsvp.UserID,
			EventID: rsvp.EventID,
			RSVPID:  rsvp.ID,
			Reason:  arrival,
			Amount:  e.policy.Delta(arrival),
			At:      now,
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.RecordCheckIn(string(arrival))
	return nil
}

// CloseEventSweep converts every still-confirmed, unchecked RSVP of an ended
// event to no_show and applies the penalty. Idempotent: a rerun finds no
// eligible RSVPs and reports zero.
func (e *Engine) CloseEventSweep(ctx context.Context, eventID string, now time.Time) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordAdmissionLatency(float64(time.Since(start).Milliseconds())) }()

	unlock := e.events.Lock(eventID)
	defer unlock()

	var swept int
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		swept = 0
		ev, err := e.store.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return notFound(err)
		}
		if now.Before(ev.EndTime) {
			return fmt.Errorf("event %s has not ended: %w", ev.ID, ErrInvalidTransition)
		}

		pending, err := e.store.ListConfirmedUncheckedTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		for i := range pending {
			rsvp := pending[i]
			if err := e.store.UpdateRSVPStatusTx(ctx, tx, rsvp.ID, model.StatusNoShow); err != nil {
				return err
			}
			if err := e.record(ctx, tx, rsvp, ev, model.ActionSweep, model.StatusConfirmed, model.StatusNoShow, now); err != nil {
				return err
			}
			if _, _, err := e.ledger.Apply(ctx, tx, ledger.Delta{
				UserID:  rsvp.UserID,
				EventID: rsvp.EventID,
				RSVPID:  rsvp.ID,
				Reason:  model.ReasonNoShow,
				Amount:  e.policy.Delta(model.ReasonNoShow),
				At:      now,
			}); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordSweepRun()
	for i := 0; i < swept; i++ {
		metrics.RecordNoShow()
	}
	if swept > 0 {
		e.logger.Info(ctx, "close-event sweep finished",
			logger.String("eventID", eventID),
			logger.Int("noShows", swept),
		)
	}
	return swept, nil
}

// record appends one audit trail row for a transition of rsvp at instant now.
func (e *Engine) record(ctx context.Context, tx *sql.Tx, rsvp model.RSVP, ev model.Event,
	action string, from, to model.RSVPStatus, now time.Time) error {
	return e.store.AppendHistoryTx(ctx, tx, model.HistoryEntry{
		ID:                 uuid.NewString(),
		RSVPID:             rsvp.ID,
		EventID:            rsvp.EventID,
		UserID:             rsvp.UserID,
		Action:             action,
		FromStatus:         from,
		ToStatus:           to,
		MinutesBeforeEvent: int(ev.StartTime.Sub(now).Minutes()),
		CreatedAt:          now,
	})
}

// withTx runs fn inside a transaction, retrying on lock contention with a
// bounded budget, then surfacing ErrTransient.
func (e *Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < e.txAttempts; attempt++ {
		if attempt > 0 {
			metrics.RecordStoreTxRetry()
			select {
			case <-ctx.Done():
				return fmt.Errorf("transaction cancelled: %w", ctx.Err())
			case <-time.After(e.retryBackoff * time.Duration(attempt)):
			}
		}

		start := time.Now()
		tx, err := e.store.BeginTx(ctx)
		if err != nil {
			if sqlite.IsBusy(err) {
				lastErr = err
				continue
			}
			return err
		}
		err = fn(tx)
		if err != nil {
			_ = tx.Rollback()
			if sqlite.IsBusy(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if sqlite.IsBusy(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit: %w", err)
		}
		metrics.RecordStoreTxLatency(float64(time.Since(start).Milliseconds()))
		return nil
	}

	metrics.RecordStoreTxFailure()
	return fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

// notFound maps storage not-found errors onto the engine's taxonomy.
func notFound(err error) error {
	if errors.Is(err, sqlite.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
