// Package model contains domain models passed between layers.
package model

import "time"

// BaselineScore is the social score every member starts with.
const BaselineScore = 100.0

// EventStatus is the lifecycle state of an event.
type EventStatus string

// Event lifecycle states.
const (
	EventDraft     EventStatus = "draft"
	EventOpen      EventStatus = "open"
	EventClosed    EventStatus = "closed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventOpen, EventClosed, EventCancelled:
		return true
	}
	return false
}

// RSVPStatus is the admission state of an RSVP.
type RSVPStatus string

// RSVP admission states.
const (
	StatusConfirmed  RSVPStatus = "confirmed"
	StatusWaitlisted RSVPStatus = "waitlisted"
	StatusCancelled  RSVPStatus = "cancelled"
	StatusNoShow     RSVPStatus = "no_show"
)

// Valid reports whether s is a known RSVP status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusWaitlisted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the RSVP still competes for or holds a slot.
func (s RSVPStatus) Active() bool {
	return s == StatusConfirmed || s == StatusWaitlisted
}

// Reason classifies a score ledger delta.
type Reason string

// Ledger delta reasons.
const (
	ReasonOnTime           Reason = "on_time"
	ReasonLateArrival      Reason = "late_arrival"
	ReasonNoShow           Reason = "no_show"
	ReasonEarlyCancel      Reason = "early_cancel"
	ReasonLateCancel       Reason = "late_cancel"
	ReasonBroughtGear      Reason = "brought_gear"
	ReasonHelpedOut        Reason = "helped_out"
	ReasonAggression       Reason = "aggression"
	ReasonManualAdjustment Reason = "manual_adjustment"
)

// Valid reports whether r is a known ledger reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonOnTime, ReasonLateArrival, ReasonNoShow, ReasonEarlyCancel,
		ReasonLateCancel, ReasonBroughtGear, ReasonHelpedOut,
		ReasonAggression, ReasonManualAdjustment:
		return true
	}
	return false
}

// Outcome reports whether r is an outcome of an RSVP lifecycle segment.
// Outcome reasons are applied at most once per (user, event, reason); manual
// reasons may repeat because each is a distinct operator action.
func (r Reason) Outcome() bool {
	switch r {
	case ReasonOnTime, ReasonLateArrival, ReasonNoShow, ReasonEarlyCancel, ReasonLateCancel:
		return true
	case ReasonBroughtGear, ReasonHelpedOut, ReasonAggression, ReasonManualAdjustment:
		return false
	}
	return false
}

// User is a community member tracked by the score ledger.
// SocialScore is a cache; the ledger is the source of truth.
type User struct {
	ID          string
	DisplayName string
	SocialScore float64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event holds the immutable-for-the-duration facts the admission engine
// reads: cap, timing window, status.
type Event struct {
	ID           string
	Title        string
	Status       EventStatus
	StartTime    time.Time
	EndTime      time.Time
	MaxAttendees int
	CreatedAt    time.Time
}

// RSVP is one member's claim on one event slot.
// SocialScoreAtRSVP and EffectiveTime are fixed at creation and never
// recomputed when the member's score later changes.
type RSVP struct {
	ID                string
	EventID           string
	UserID            string
	RSVPTime          time.Time
	EffectiveTime     time.Time
	SocialScoreAtRSVP float64
	Status            RSVPStatus
	CheckedIn         bool
	CheckedInAt       time.Time // zero unless CheckedIn
}

// Audit actions recorded in the RSVP history trail.
const (
	ActionSubmit  = "submit"
	ActionCancel  = "cancel"
	ActionPromote = "promote"
	ActionCheckIn = "check_in"
	ActionSweep   = "sweep"
)

// HistoryEntry is one immutable RSVP state transition.
// FromStatus is empty only on creation.
type HistoryEntry struct {
	ID                 string
	RSVPID             string
	EventID            string
	UserID             string
	Action             string
	FromStatus         RSVPStatus
	ToStatus           RSVPStatus
	MinutesBeforeEvent int
	CreatedAt          time.Time
}

// ScoreEntry is one immutable ledger row. NewScore is the running total
// after applying Delta; CreatedBy is empty for system-issued deltas.
type ScoreEntry struct {
	ID        string
	UserID    string
	EventID   string // empty for non-event adjustments
	RSVPID    string // empty for adjustments not tied to a seat
	Delta     float64
	Reason    Reason
	NewScore  float64
	CreatedBy string
	CreatedAt time.Time
}
