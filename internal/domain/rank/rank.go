// Package rank computes the derived ranking key that orders RSVPs.
//
// An RSVP's effective time is its submission instant shifted earlier by the
// member's reputation surplus over the baseline score (or later for a
// deficit). The literal submission order shown to members never changes;
// only placement when the cap is full and promotion order on the waitlist
// follow the effective time.
package rank

import (
	"time"

	"github.com/okian/velvet/internal/domain/model"
)

// Default ranking configuration constants.
const (
	defaultScale = time.Minute // one score point buys one minute of priority
)

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithScale sets the time offset one score point is worth.
func WithScale(scale time.Duration) Option {
	return func(r *Ranker) {
		if scale > 0 {
			r.scale = scale
		}
	}
}

// WithBaseline sets the score that maps to a zero offset.
func WithBaseline(baseline float64) Option {
	return func(r *Ranker) {
		if baseline > 0 {
			r.baseline = baseline
		}
	}
}

// Ranker derives effective times from submission times and score snapshots.
type Ranker struct {
	scale    time.Duration
	baseline float64
}

// New creates a Ranker with configuration options.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		scale:    defaultScale,
		baseline: model.BaselineScore,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EffectiveTime returns rsvpTime - scale*(scoreAtRSVP - baseline).
// A score above baseline yields an earlier effective time; below, later.
func (r *Ranker) EffectiveTime(rsvpTime time.Time, scoreAtRSVP float64) time.Time {
	offset := time.Duration((scoreAtRSVP - r.baseline) * float64(r.scale))
	return rsvpTime.Add(-offset)
}

// Less defines the waitlist order: effective time, then submission time,
// then id. Lower sorts first and promotes first.
func Less(a, b *model.RSVP) bool {
	if !a.EffectiveTime.Equal(b.EffectiveTime) {
		return a.EffectiveTime.Before(b.EffectiveTime)
	}
	if !a.RSVPTime.Equal(b.RSVPTime) {
		return a.RSVPTime.Before(b.RSVPTime)
	}
	return a.ID < b.ID
}
