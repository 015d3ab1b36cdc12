// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
)

// EventDependencies defines the interface for event operations.
type EventDependencies interface {
	CreateEvent(ctx context.Context, title string, start, end time.Time, maxAttendees int, status model.EventStatus) (model.Event, error)
	SetEventStatus(ctx context.Context, eventID string, status model.EventStatus) error
	Roster(ctx context.Context, eventID string) (admission.Roster, error)
	CloseEvent(ctx context.Context, eventID string) (int, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the request schema for POST /events.
type eventRequest struct {
	Title        string `json:"title"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	MaxAttendees int    `json:"max_attendees"`
	Status       string `json:"status"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return errors.New("missing title")
	case strings.TrimSpace(e.StartTime) == "":
		return errors.New("missing start_time")
	case strings.TrimSpace(e.EndTime) == "":
		return errors.New("missing end_time")
	case e.MaxAttendees < 1:
		return errors.New("max_attendees must be at least 1")
	}
	if _, err := time.Parse(time.RFC3339, e.StartTime); err != nil {
		return errors.New("invalid start_time; must be RFC3339")
	}
	if _, err := time.Parse(time.RFC3339, e.EndTime); err != nil {
		return errors.New("invalid end_time; must be RFC3339")
	}
	if e.Status != "" && !model.EventStatus(e.Status).Valid() {
		return errors.New("unknown status")
	}
	return nil
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	start, _ := time.Parse(time.RFC3339, req.StartTime)
	end, _ := time.Parse(time.RFC3339, req.EndTime)

	ev, err := h.deps.CreateEvent(r.Context(), req.Title, start, end, req.MaxAttendees, model.EventStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

// statusRequest mirrors the request schema for POST /events/{id}/status.
type statusRequest struct {
	Status string `json:"status"`
}

// closeResponse is the body returned by POST /events/{id}/close.
type closeResponse struct {
	EventID      string `json:"event_id"`
	NoShowsSwept int    `json:"no_shows_swept"`
}

// rosterResponse is the body returned by GET /events/{id}/roster.
type rosterResponse struct {
	Event     eventResponse           `json:"event"`
	Confirmed []rsvpResponse          `json:"confirmed"`
	Waitlist  []waitlistEntryResponse `json:"waitlist"`
}

type waitlistEntryResponse struct {
	Position int          `json:"position"`
	RSVP     rsvpResponse `json:"rsvp"`
}

// HandleEventSub routes /events/{id}/{action} requests:
//
//	GET  /events/{id}/roster
//	POST /events/{id}/close
//	POST /events/{id}/status
func (h *EventsHandler) HandleEventSub(w http.ResponseWriter, r *http.Request) {
	const op = "api.event_sub"
	path := strings.TrimPrefix(r.URL.Path, "/events/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch action {
	case "roster":
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		h.handleRoster(w, r, id)
	case "close":
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		swept, err := h.deps.CloseEvent(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, closeResponse{EventID: id, NoShowsSwept: swept})
	case "status":
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if !model.EventStatus(req.Status).Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if err := h.deps.SetEventStatus(r.Context(), id, model.EventStatus(req.Status)); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handleRoster(w http.ResponseWriter, r *http.Request, id string) {
	roster, err := h.deps.Roster(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := rosterResponse{
		Event:     toEventResponse(roster.Event),
		Confirmed: make([]rsvpResponse, 0, len(roster.Confirmed)),
		Waitlist:  make([]waitlistEntryResponse, 0, len(roster.Waitlist)),
	}
	for _, rsvp := range roster.Confirmed {
		resp.Confirmed = append(resp.Confirmed, toRSVPResponse(rsvp))
	}
	for _, entry := range roster.Waitlist {
		resp.Waitlist = append(resp.Waitlist, waitlistEntryResponse{
			Position: entry.Position,
			RSVP:     toRSVPResponse(entry.RSVP),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
