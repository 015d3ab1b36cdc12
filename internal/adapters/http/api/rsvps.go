// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/velvet/internal/domain/model"
)

// RSVPDependencies defines the interface for RSVP operations.
type RSVPDependencies interface {
	Submit(ctx context.Context, eventID, userID string) (model.RSVP, error)
	Cancel(ctx context.Context, rsvpID, actorID string) error
	CheckIn(ctx context.Context, rsvpID string) error
	RSVPHistory(ctx context.Context, rsvpID string) ([]model.HistoryEntry, error)
}

// RSVPsHandler handles RSVP requests.
type RSVPsHandler struct {
	deps RSVPDependencies
}

// NewRSVPsHandler creates a new RSVPs handler.
func NewRSVPsHandler(deps RSVPDependencies) *RSVPsHandler {
	return &RSVPsHandler{deps: deps}
}

// rsvpRequest mirrors the request schema for POST /rsvps.
type rsvpRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

func (r rsvpRequest) validate() error {
	switch {
	case strings.TrimSpace(r.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(r.UserID) == "":
		return errors.New("missing user_id")
	}
	return nil
}

// HandlePostRSVP handles POST /rsvps requests. The response carries the
// admission outcome: status confirmed or waitlisted.
func (h *RSVPsHandler) HandlePostRSVP(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rsvp"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req rsvpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rsvp, err := h.deps.Submit(r.Context(), req.EventID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRSVPResponse(rsvp))
}

// cancelRequest mirrors the request schema for POST /rsvps/{id}/cancel.
// ActorID attributes the cancellation in the audit trail; empty means the
// member cancelled themselves.
type cancelRequest struct {
	ActorID string `json:"actor_id"`
}

// HandleRSVPSub routes /rsvps/{id}/{action} requests:
//
//	POST /rsvps/{id}/cancel
//	POST /rsvps/{id}/checkin
//	GET  /rsvps/{id}/history
func (h *RSVPsHandler) HandleRSVPSub(w http.ResponseWriter, r *http.Request) {
	const op = "api.rsvp_sub"
	path := strings.TrimPrefix(r.URL.Path, "/rsvps/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch action {
	case "cancel":
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req cancelRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
				return
			}
		}
		if err := h.deps.Cancel(r.Context(), id, req.ActorID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(model.StatusCancelled)})
	case "checkin":
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := h.deps.CheckIn(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "checked_in": true})
	case "history":
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		entries, err := h.deps.RSVPHistory(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]historyEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, toHistoryEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		http.NotFound(w, r)
	}
}
