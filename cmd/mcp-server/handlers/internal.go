package handlers

import (
	"errors"
	"net/http"

	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// GetToken returns the stored token for a user, or null when absent.
// Collaborator-facing: guarded by the JWT middleware in production.
func (h *Handlers) GetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	token, err := h.store.GetToken(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"token": nil})
			return
		}
		logging.Error("Internal", err, "get-token for user %s", req.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// SetToken stores a token for a user.
func (h *Handlers) SetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId and token are required"})
		return
	}

	if err := h.store.SetToken(r.Context(), req.UserID, req.Token); err != nil {
		logging.Error("Internal", err, "set-token for user %s", req.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
