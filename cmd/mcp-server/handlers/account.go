package handlers

import (
	"errors"
	"net/http"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// DeleteAccount removes a user's credential and, when the upstream account
// can still be resolved, the Todoist-id link. An upstream failure leaves an
// orphaned link behind; that is logged rather than failing the deletion,
// since the credential removal is what the user asked for.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	ctx := r.Context()

	token, err := h.store.GetToken(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "No account data found"})
			return
		}
		logging.Error("Account", err, "loading credential for deletion, user %s", req.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return
	}

	// Resolve the upstream id before the token goes away, so the link can
	// be dropped too.
	if user, err := h.newClient(token).GetUser(ctx); err != nil {
		logging.Warn("Account", "could not resolve Todoist account for user %s, link left orphaned: %v", req.UserID, err)
	} else if err := h.store.UnlinkTodoistUser(ctx, user.ID); err != nil {
		logging.Warn("Account", "could not unlink Todoist account %s for user %s: %v", user.ID, req.UserID, err)
	}

	if err := h.store.DeleteToken(ctx, req.UserID); err != nil {
		logging.Error("Account", err, "deleting credential for user %s", req.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete account data"})
		return
	}

	h.publisher.Publish(ctx, events.UserDeleted, map[string]string{"userId": req.UserID})
	logging.Info("Account", "deleted account data for user %s", req.UserID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
