// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// User operations.
	CreateUser(ctx context.Context, displayName string) (model.User, error)
	UserScore(ctx context.Context, userID string) (model.User, []model.ScoreEntry, error)

	// Event operations.
	CreateEvent(ctx context.Context, title string, start, end time.Time, maxAttendees int, status model.EventStatus) (model.Event, error)
	SetEventStatus(ctx context.Context, eventID string, status model.EventStatus) error
	Roster(ctx context.Context, eventID string) (admission.Roster, error)
	CloseEvent(ctx context.Context, eventID string) (int, error)

	// RSVP operations.
	Submit(ctx context.Context, eventID, userID string) (model.RSVP, error)
	Cancel(ctx context.Context, rsvpID, actorID string) error
	CheckIn(ctx context.Context, rsvpID string) error
	RSVPHistory(ctx context.Context, rsvpID string) ([]model.HistoryEntry, error)

	// Score operations.
	AdjustScore(ctx context.Context, adj admission.Adjustment) (float64, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	metricsHandler *MetricsHandler
	statsHandler   *StatsHandler
	usersHandler   *UsersHandler
	eventsHandler  *EventsHandler
	rsvpsHandler   *RSVPsHandler
	scoresHandler  *ScoresHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		metricsHandler: NewMetricsHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		usersHandler:   NewUsersHandler(deps),
		eventsHandler:  NewEventsHandler(deps),
		rsvpsHandler:   NewRSVPsHandler(deps),
		scoresHandler:  NewScoresHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/users", MetricsMiddleware(s.usersHandler.HandlePostUser, "users"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUserSub, "users"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleEventSub, "events"))
	mux.HandleFunc("/rsvps", MetricsMiddleware(s.rsvpsHandler.HandlePostRSVP, "rsvps"))
	mux.HandleFunc("/rsvps/", MetricsMiddleware(s.rsvpsHandler.HandleRSVPSub, "rsvps"))
	mux.HandleFunc("/scores/adjust", MetricsMiddleware(s.scoresHandler.HandleAdjust, "scores"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates admission error kinds into HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admission.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, admission.ErrDuplicateRSVP):
		writeError(w, http.StatusConflict, "duplicate_rsvp", err)
	case errors.Is(err, admission.ErrCapacityPolicy):
		writeError(w, http.StatusConflict, "capacity_policy", err)
	case errors.Is(err, admission.ErrCheckInWindow):
		writeError(w, http.StatusConflict, "check_in_window", err)
	case errors.Is(err, admission.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, admission.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "retry_later", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// Wire representations. Times travel as RFC3339 UTC.

type userResponse struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	SocialScore float64 `json:"social_score"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

type eventResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	MaxAttendees int    `json:"max_attendees"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type rsvpResponse struct {
	ID                string  `json:"id"`
	EventID           string  `json:"event_id"`
	UserID            string  `json:"user_id"`
	Status            string  `json:"status"`
	RSVPTime          string  `json:"rsvp_time"`
	EffectiveTime     string  `json:"effective_time"`
	SocialScoreAtRSVP float64 `json:"social_score_at_rsvp"`
	CheckedIn         bool    `json:"checked_in"`
	CheckedInAt       string  `json:"checked_in_at,omitempty"`
}

type historyEntryResponse struct {
	ID                 string `json:"id"`
	Action             string `json:"action"`
	FromStatus         string `json:"from_status,omitempty"`
	ToStatus           string `json:"to_status"`
	MinutesBeforeEvent int    `json:"minutes_before_event"`
	CreatedAt          string `json:"created_at"`
}

type scoreEntryResponse struct {
	ID        string  `json:"id"`
	EventID   string  `json:"event_id,omitempty"`
	RSVPID    string  `json:"rsvp_id,omitempty"`
	Delta     float64 `json:"delta"`
	Reason    string  `json:"reason"`
	NewScore  float64 `json:"new_score"`
	CreatedBy string  `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		SocialScore: u.SocialScore,
		IsActive:    u.IsActive,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

func toEventResponse(e model.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Status:       string(e.Status),
		StartTime:    formatTime(e.StartTime),
		EndTime:      formatTime(e.EndTime),
		MaxAttendees: e.MaxAttendees,
		CreatedAt:    formatTime(e.CreatedAt),
	}
}

func toRSVPResponse(r model.RSVP) rsvpResponse {
	return rsvpResponse{
		ID:                r.ID,
		EventID:           r.EventID,
		UserID:            r.UserID,
		Status:            string(r.Status),
		RSVPTime:          formatTime(r.RSVPTime),
		EffectiveTime:     formatTime(r.EffectiveTime),
		SocialScoreAtRSVP: r.SocialScoreAtRSVP,
		CheckedIn:         r.CheckedIn,
		CheckedInAt:       formatTime(r.CheckedInAt),
	}
}

func toHistoryEntryResponse(h model.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:                 h.ID,
		Action:             h.Action,
		FromStatus:         string(h.FromStatus),
		ToStatus:           string(h.ToStatus),
		MinutesBeforeEvent: h.MinutesBeforeEvent,
		CreatedAt:          formatTime(h.CreatedAt),
	}
}

func toScoreEntryResponse(e model.ScoreEntry) scoreEntryResponse {
	return scoreEntryResponse{
		ID:        e.ID,
		EventID:   e.EventID,
		RSVPID:    e.RSVPID,
		Delta:     e.Delta,
		Reason:    string(e.Reason),
		NewScore:  e.NewScore,
		CreatedBy: e.CreatedBy,
		CreatedAt: formatTime(e.CreatedAt),
	}
}
