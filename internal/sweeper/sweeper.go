// Package sweeper runs the periodic close-event pass: it finds ended events
// that still hold confirmed, unchecked RSVPs and drives the admission
// engine's sweep for each. The sweep itself is idempotent, so overlapping
// triggers (scheduler plus manual invocation) are safe.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/velvet/pkg/logger"
)

// Default sweeper configuration constants.
const (
	defaultInterval = time.Minute
)

// Engine is the sweep entry point on the admission engine.
type Engine interface {
	CloseEventSweep(ctx context.Context, eventID string, now time.Time) (int, error)
}

// Store lists events with sweepable RSVPs.
type Store interface {
	ListSweepCandidates(ctx context.Context, now int64) ([]string, error)
}

// Option applies a configuration option to the Sweeper.
type Option func(*Sweeper)

// WithInterval sets the scan interval.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLogger sets a custom logger for the sweeper.
func WithLogger(l logger.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sweeper scans for ended events on a timer and sweeps them.
type Sweeper struct {
	store    Store
	engine   Engine
	interval time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// New creates a Sweeper over store and engine.
func New(store Store, engine Engine, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		engine:   engine,
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans until ctx is cancelled or Shutdown is called.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// Shutdown gracefully stops the sweeper.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// scan runs one pass over all sweep candidates.
func (s *Sweeper) scan(ctx context.Context) {
	now := time.Now().UTC()
	candidates, err := s.store.ListSweepCandidates(ctx, now.UnixMilli())
	if err != nil {
		s.logger.Error(ctx, "listing sweep candidates failed", logger.Error(err))
		return
	}

	for _, eventID := range candidates {
		swept, err := s.engine.CloseEventSweep(ctx, eventID, now)
		if err != nil {
			s.logger.Error(ctx, "sweep failed",
				logger.String("eventID", eventID),
				logger.Error(err),
			)
			continue
		}
		if swept > 0 {
			s.logger.Info(ctx, "swept event",
				logger.String("eventID", eventID),
				logger.Int("noShows", swept),
			)
		}
	}
}
