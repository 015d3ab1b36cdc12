// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
)

// ScoreDependencies defines the interface for manual score adjustments.
type ScoreDependencies interface {
	AdjustScore(ctx context.Context, adj admission.Adjustment) (float64, error)
}

// ScoresHandler handles manual score adjustment requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// adjustRequest mirrors the request schema for POST /scores/adjust.
// Delta is read only for reason manual_adjustment; the other manual reasons
// use the configured policy table.
type adjustRequest struct {
	UserID   string  `json:"user_id"`
	EventID  string  `json:"event_id"`
	Reason   string  `json:"reason"`
	Delta    float64 `json:"delta"`
	IssuedBy string  `json:"issued_by"`
}

func (a adjustRequest) validate() error {
	switch {
	case strings.TrimSpace(a.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(a.Reason) == "":
		return errors.New("missing reason")
	case strings.TrimSpace(a.IssuedBy) == "":
		return errors.New("missing issued_by")
	}
	if !model.Reason(a.Reason).Valid() {
		return errors.New("unknown reason")
	}
	return nil
}

// adjustResponse is the body returned by POST /scores/adjust.
type adjustResponse struct {
	UserID   string  `json:"user_id"`
	NewScore float64 `json:"new_score"`
}

// HandleAdjust handles POST /scores/adjust requests.
func (h *ScoresHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	newScore, err := h.deps.AdjustScore(r.Context(), admission.Adjustment{
		UserID:   req.UserID,
		EventID:  req.EventID,
		Reason:   model.Reason(req.Reason),
		Amount:   req.Delta,
		IssuedBy: req.IssuedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{UserID: req.UserID, NewScore: newScore})
}
