package handlers

import (
	"errors"
	"net/http"

	"github.com/taskbridge/todoist-mcp/internal/config"
	"github.com/taskbridge/todoist-mcp/internal/oauth"
	"github.com/taskbridge/todoist-mcp/internal/web"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// Auth starts the OAuth flow by redirecting to Todoist's authorize page.
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.flow.AuthorizeURL(r.Context())
	if err != nil {
		logging.Error("OAuth", err, "building authorize URL")
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			web.Error(w, http.StatusInternalServerError, "OAuth Not Configured", cfgErr.Error())
			return
		}
		web.Error(w, http.StatusInternalServerError, "Something went wrong", "Could not start the Todoist authorization flow.")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback finishes the OAuth flow: state consumption, code exchange,
// profile fetch and credential persistence, then a redirect onto the
// personalized success page.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	userID, err := h.flow.HandleCallback(r.Context(), code, state)
	if err != nil {
		logging.Error("OAuth", err, "callback failed")

		var badReq *oauth.BadRequestError
		if errors.As(err, &badReq) {
			web.Error(w, http.StatusBadRequest, "Authorization Failed", badReq.Msg)
			return
		}
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			web.Error(w, http.StatusInternalServerError, "OAuth Not Configured", cfgErr.Error())
			return
		}
		web.Error(w, http.StatusBadRequest, "Authorization Failed",
			"Todoist authorization could not be completed. Please try again.")
		return
	}

	http.Redirect(w, r, "/?user_id="+userID, http.StatusFound)
}
