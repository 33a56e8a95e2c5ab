package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/gla1v3/console-auth/pkg/client"
	"github.com/gla1v3/console-auth/pkg/sessions"
)

// Handler handles HTTP requests for session management
type Handler struct {
	service *sessions.Service
}

// NewHandler creates a new session handler
func NewHandler(service *sessions.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the session management routes.
// These routes must be mounted under an authenticated route group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListSessions)
	r.Post("/revoke", h.RevokeSession)
	r.Post("/revoke-all", h.RevokeAllSessions)
	r.Delete("/{id}", h.DeleteSession)
}

// RevokeSessionRequest identifies the session to revoke
type RevokeSessionRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// ListSessions handles GET /sessions - list active sessions for the caller
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	response, err := h.service.ListActiveByUsername(r.Context(), authUser.Username, authUser.SessionBearer)
	if err != nil {
		slog.Error("Failed to list sessions", "username", authUser.Username, "error", err)
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RevokeSession handles POST /sessions/revoke - revoke one session by ID.
// A caller may only revoke their own sessions.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req RevokeSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == uuid.Nil {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	h.revokeOwned(w, r, authUser, req.SessionID)
}

// DeleteSession handles DELETE /sessions/{id} - revoke one session by ID
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}

	h.revokeOwned(w, r, authUser, sessionID)
}

// revokeOwned revokes sessionID after checking the caller owns it
func (h *Handler) revokeOwned(w http.ResponseWriter, r *http.Request, authUser *client.AuthUser, sessionID uuid.UUID) {
	target, err := h.service.ListActiveByUsername(r.Context(), authUser.Username, authUser.SessionBearer)
	if err != nil {
		slog.Error("Failed to resolve sessions", "username", authUser.Username, "error", err)
		http.Error(w, "Failed to revoke session", http.StatusInternalServerError)
		return
	}
	owned := false
	for _, s := range target.Sessions {
		if s.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if err := h.service.RevokeByID(r.Context(), sessionID); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to revoke session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to revoke session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// RevokeAllSessions handles POST /sessions/revoke-all - revoke every session
// of the caller, the current one included. The client must log in again.
func (h *Handler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.RevokeAllByUsername(r.Context(), authUser.Username); err != nil {
		slog.Error("Failed to revoke all sessions", "username", authUser.Username, "error", err)
		http.Error(w, "Failed to revoke sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
