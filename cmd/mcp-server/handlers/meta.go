package handlers

import (
	"net/http"

	"github.com/taskbridge/todoist-mcp/internal/web"
)

const serverVersion = "1.0.0"

// Health reports liveness plus a storage ping.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{
		"status":    status,
		"server":    "todoist-mcp",
		"version":   serverVersion,
		"transport": "sse",
	})
}

// Discovery serves the OAuth authorization-server metadata document.
func (h *Handlers) Discovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                   h.baseURL,
		"authorization_endpoint":   h.baseURL + "/auth",
		"token_endpoint":           h.baseURL + "/token",
		"response_types_supported": []string{"code"},
		"grant_types_supported":    []string{"authorization_code"},
	})
}

// Home serves the landing page, or the personalized success page when the
// visitor arrives from a completed OAuth flow.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		web.Success(w, h.baseURL, userID)
		return
	}
	web.Landing(w)
}

// Cancelled serves the checkout-abandoned page.
func (h *Handlers) Cancelled(w http.ResponseWriter, r *http.Request) {
	web.Cancelled(w)
}
