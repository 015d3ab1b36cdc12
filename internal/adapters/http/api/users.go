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

// UserDependencies defines the interface for user operations.
type UserDependencies interface {
	CreateUser(ctx context.Context, displayName string) (model.User, error)
	UserScore(ctx context.Context, userID string) (model.User, []model.ScoreEntry, error)
}

// UsersHandler handles user requests.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// userRequest mirrors the request schema for POST /users.
type userRequest struct {
	DisplayName string `json:"display_name"`
}

// HandlePostUser handles POST /users requests: member bootstrap at the
// baseline score.
func (h *UsersHandler) HandlePostUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_user"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing display_name")))
		return
	}

	u, err := h.deps.CreateUser(r.Context(), req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// userScoreResponse is the body returned by GET /users/{id}/score.
type userScoreResponse struct {
	User   userResponse         `json:"user"`
	Ledger []scoreEntryResponse `json:"ledger"`
}

// HandleUserSub routes /users/{id}/score requests.
func (h *UsersHandler) HandleUserSub(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_sub"
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" || action != "score" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	u, entries, err := h.deps.UserScore(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := userScoreResponse{
		User:   toUserResponse(u),
		Ledger: make([]scoreEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Ledger = append(resp.Ledger, toScoreEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
