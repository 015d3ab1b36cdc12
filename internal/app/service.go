// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/velvet/internal/adapters/http/api"
	"github.com/okian/velvet/internal/adapters/storage/sqlite"
	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/domain/policy"
	"github.com/okian/velvet/internal/domain/rank"
	"github.com/okian/velvet/internal/ledger"
	"github.com/okian/velvet/internal/sweeper"
	"github.com/okian/velvet/pkg/logger"
	"github.com/okian/velvet/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultStorePath         = "velvet.db"
	defaultSweepInterval     = time.Minute
	defaultScoreHistoryLimit = 50
)

// Service wires the store, ledger, admission engine, and sweeper together
// and implements the API dependencies for the admission system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *sqlite.Store
	ledger  *ledger.Ledger
	engine  *admission.Engine
	sweeper *sweeper.Sweeper

	// Configuration
	storePath         string
	policy            *policy.Policy
	ranker            *rank.Ranker
	baselineScore     float64
	sweepInterval     time.Duration
	txAttempts        int
	scoreHistoryLimit int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStorePath sets the SQLite database file path.
func WithStorePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.storePath = path
		}
	}
}

// WithPolicy sets the scoring and timing policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithRanker sets the effective-time ranker.
func WithRanker(r *rank.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithBaselineScore sets the score new members start with.
func WithBaselineScore(score float64) Option {
	return func(s *Service) {
		if score > 0 {
			s.baselineScore = score
		}
	}
}

// WithSweepInterval sets how often the background sweeper scans for ended
// events.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithTxAttempts bounds transaction retries under lock contention.
func WithTxAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.txAttempts = attempts
		}
	}
}

// WithScoreHistoryLimit caps the ledger entries returned per score query.
func WithScoreHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.scoreHistoryLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storePath:         defaultStorePath,
		baselineScore:     model.BaselineScore,
		sweepInterval:     defaultSweepInterval,
		txAttempts:        3,
		scoreHistoryLimit: defaultScoreHistoryLimit,
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.policy == nil {
		s.policy = policy.New()
	}
	if s.ranker == nil {
		s.ranker = rank.New(rank.WithBaseline(s.baselineScore))
	}

	return s
}

// Start opens the store and wires the engine and sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting admission service...")

	store, err := sqlite.Open(ctx, s.storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store
	s.ledger = ledger.New(store)
	s.engine = admission.New(store, s.ledger,
		admission.WithRanker(s.ranker),
		admission.WithPolicy(s.policy),
		admission.WithLogger(s.logger.Named("admission")),
		admission.WithTxAttempts(s.txAttempts),
	)
	s.sweeper = sweeper.New(store, s.engine,
		sweeper.WithInterval(s.sweepInterval),
		sweeper.WithLogger(s.logger.Named("sweeper")),
	)
	go s.sweeper.Run(ctx)

	s.started = true
	s.logger.Info(ctx, "admission service started",
		logger.String("storePath", s.storePath),
		logger.Int("txAttempts", s.txAttempts),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info(ctx, "stopping admission service...")

	if s.sweeper != nil {
		if err := s.sweeper.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "sweeper shutdown", logger.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "store close", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "admission service stopped")
}

// mapStoreErr translates storage error kinds into admission error kinds so
// callers only ever match against one error vocabulary.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sqlite.ErrNotFound):
		return fmt.Errorf("%w: %v", admission.ErrNotFound, err)
	case errors.Is(err, sqlite.ErrConflict):
		return fmt.Errorf("%w: %v", admission.ErrInvalidTransition, err)
	}
	return err
}

// CreateUser bootstraps a member with the baseline score.
func (s *Service) CreateUser(ctx context.Context, displayName string) (model.User, error) {
	if displayName == "" {
		return model.User{}, fmt.Errorf("display name must not be empty: %w", admission.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	u := model.User{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		SocialScore: s.baselineScore,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return model.User{}, mapStoreErr(err)
	}

	s.logger.Debug(ctx, "user created",
		logger.String("userID", u.ID),
		logger.Float64("score", u.SocialScore),
	)
	return u, nil
}

// CreateEvent creates an event. Status defaults to open when empty.
func (s *Service) CreateEvent(ctx context.Context, title string, start, end time.Time, maxAttendees int, status model.EventStatus) (model.Event, error) {
	if status == "" {
		status = model.EventOpen
	}

	ev := model.Event{
		ID:           uuid.NewString(),
		Title:        title,
		Status:       status,
		StartTime:    start,
		EndTime:      end,
		MaxAttendees: maxAttendees,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return model.Event{}, mapStoreErr(err)
	}

	s.logger.Debug(ctx, "event created",
		logger.String("eventID", ev.ID),
		logger.String("status", string(ev.Status)),
		logger.Int("maxAttendees", ev.MaxAttendees),
	)
	return ev, nil
}

// SetEventStatus moves an event through its lifecycle.
func (s *Service) SetEventStatus(ctx context.Context, eventID string, status model.EventStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown event status %q: %w", status, admission.ErrInvalidTransition)
	}
	return mapStoreErr(s.store.SetEventStatus(ctx, eventID, status))
}

// Submit places an RSVP for a user on an event.
func (s *Service) Submit(ctx context.Context, eventID, userID string) (model.RSVP, error) {
	return s.engine.Submit(ctx, eventID, userID, time.Now().UTC())
}

// Cancel withdraws an RSVP.
func (s *Service) Cancel(ctx context.Context, rsvpID, actorID string) error {
	return s.engine.Cancel(ctx, rsvpID, time.Now().UTC(), actorID)
}

// CheckIn marks a confirmed RSVP as arrived.
func (s *Service) CheckIn(ctx context.Context, rsvpID string) error {
	return s.engine.CheckIn(ctx, rsvpID, time.Now().UTC())
}

// CloseEvent runs the no-show sweep for an ended event and returns the
// number of RSVPs swept.
func (s *Service) CloseEvent(ctx context.Context, eventID string) (int, error) {
	return s.engine.CloseEventSweep(ctx, eventID, time.Now().UTC())
}

// Roster returns the queue state of an event.
func (s *Service) Roster(ctx context.Context, eventID string) (admission.Roster, error) {
	return s.engine.Roster(ctx, eventID)
}

// AdjustScore applies a manual score adjustment with issuer attribution.
func (s *Service) AdjustScore(ctx context.Context, adj admission.Adjustment) (float64, error) {
	return s.engine.AdjustScore(ctx, adj, time.Now().UTC())
}

// UserScore returns a member with their recent ledger entries.
func (s *Service) UserScore(ctx context.Context, userID string) (model.User, []model.ScoreEntry, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, nil, mapStoreErr(err)
	}
	entries, err := s.store.ListScoreHistoryByUser(ctx, userID, s.scoreHistoryLimit)
	if err != nil {
		return model.User{}, nil, mapStoreErr(err)
	}
	return u, entries, nil
}

// RSVPHistory returns the audit trail of one RSVP, oldest first.
func (s *Service) RSVPHistory(ctx context.Context, rsvpID string) ([]model.HistoryEntry, error) {
	if _, err := s.store.GetRSVP(ctx, rsvpID); err != nil {
		return nil, mapStoreErr(err)
	}
	entries, err := s.store.ListHistoryByRSVP(ctx, rsvpID)
	return entries, mapStoreErr(err)
}

// GetStats snapshots the service counters and refreshes the gauges that
// mirror them.
func (s *Service) GetStats() api.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := api.Stats{
		Started:    s.started,
		StorePath:  s.storePath,
		TxAttempts: s.txAttempts,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	if users, err := s.store.CountUsers(ctx); err == nil {
		stats.TotalUsers = users
		metrics.UpdateTrackedUsers(users)
	}
	if open, err := s.store.CountOpenEvents(ctx); err == nil {
		stats.OpenEvents = open
		metrics.UpdateOpenEvents(open)
	}
	if depth, err := s.store.WaitlistDepth(ctx); err == nil {
		stats.WaitlistDepth = depth
		metrics.UpdateWaitlistDepth(depth)
	}
	return stats
}
