// Package policy holds the tunable behavior table for the admission engine:
// how much each ledger reason is worth and the timing windows that classify
// cancellations and arrivals. Magnitudes come from configuration so
// operators can retune them without a code change.
package policy

import (
	"time"

	"github.com/okian/velvet/internal/domain/model"
)

// Default policy constants.
const (
	defaultCancelGrace       = 24 * time.Hour
	defaultLatenessThreshold = 15 * time.Minute
	defaultCheckInEarlyGrace = 30 * time.Minute
)

// defaultDeltas is the shipped reason->delta table. manual_adjustment is
// caller-supplied and carries no default magnitude.
func defaultDeltas() map[model.Reason]float64 {
	return map[model.Reason]float64{
		model.ReasonOnTime:      2,
		model.ReasonLateArrival: -2,
		model.ReasonNoShow:      -10,
		model.ReasonEarlyCancel: 0,
		model.ReasonLateCancel:  -5,
		model.ReasonBroughtGear: 3,
		model.ReasonHelpedOut:   3,
		model.ReasonAggression:  -15,
	}
}

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithDeltas overrides delta magnitudes for the given reasons. Reasons not
// present keep their defaults.
func WithDeltas(deltas map[string]float64) Option {
	return func(p *Policy) {
		for name, delta := range deltas {
			r := model.Reason(name)
			if r.Valid() && r != model.ReasonManualAdjustment {
				p.deltas[r] = delta
			}
		}
	}
}

// WithCancelGrace sets how long before start a cancellation counts as early.
func WithCancelGrace(grace time.Duration) Option {
	return func(p *Policy) {
		if grace > 0 {
			p.cancelGrace = grace
		}
	}
}

// WithLatenessThreshold sets how long after start an arrival still counts as on time.
func WithLatenessThreshold(threshold time.Duration) Option {
	return func(p *Policy) {
		if threshold > 0 {
			p.latenessThreshold = threshold
		}
	}
}

// WithCheckInEarlyGrace sets how long before start check-in opens.
func WithCheckInEarlyGrace(grace time.Duration) Option {
	return func(p *Policy) {
		if grace >= 0 {
			p.checkInEarlyGrace = grace
		}
	}
}

// Policy is the immutable-after-construction behavior table.
type Policy struct {
	deltas            map[model.Reason]float64
	cancelGrace       time.Duration
	latenessThreshold time.Duration
	checkInEarlyGrace time.Duration
}

// New creates a Policy with configuration options.
func New(opts ...Option) *Policy {
	p := &Policy{
		deltas:            defaultDeltas(),
		cancelGrace:       defaultCancelGrace,
		latenessThreshold: defaultLatenessThreshold,
		checkInEarlyGrace: defaultCheckInEarlyGrace,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delta returns the configured magnitude for reason. manual_adjustment and
// unknown reasons return 0.
func (p *Policy) Delta(reason model.Reason) float64 {
	return p.deltas[reason]
}

// CancelReason classifies a cancellation by its distance from event start.
func (p *Policy) CancelReason(now, start time.Time) model.Reason {
	if start.Sub(now) > p.cancelGrace {
		return model.ReasonEarlyCancel
	}
	return model.ReasonLateCancel
}

// ArrivalReason classifies a check-in by its distance from event start.
func (p *Policy) ArrivalReason(now, start time.Time) model.Reason {
	if !now.After(start.Add(p.latenessThreshold)) {
		return model.ReasonOnTime
	}
	return model.ReasonLateArrival
}

// InCheckInWindow reports whether now falls inside the event's check-in
// window: the pre-start grace through the end of the event.
func (p *Policy) InCheckInWindow(now, start, end time.Time) bool {
	if now.Before(start.Add(-p.checkInEarlyGrace)) {
		return false
	}
	return !now.After(end)
}

// CancelGrace returns the early-cancel window.
func (p *Policy) CancelGrace() time.Duration { return p.cancelGrace }
