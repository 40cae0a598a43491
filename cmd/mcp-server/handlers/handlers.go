// Package handlers implements the HTTP surface around the MCP transport:
// OAuth redirects, the internal token API, account deletion, subscription
// management and the small HTML pages.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/oauth"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/internal/subscription"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
)

// Handlers bundles the dependencies shared by the HTTP endpoints.
type Handlers struct {
	store     storage.Store
	flow      *oauth.Flow
	gate      *subscription.Gate
	stripe    *subscription.StripeProvider
	publisher events.Publisher
	baseURL   string
	newClient func(token string) todoist.API
}

// New wires the handler set. stripe may be nil when billing is not
// configured; newClient may be nil to use live Todoist clients.
func New(
	store storage.Store,
	flow *oauth.Flow,
	gate *subscription.Gate,
	stripe *subscription.StripeProvider,
	publisher events.Publisher,
	baseURL string,
	newClient func(token string) todoist.API,
) *Handlers {
	if newClient == nil {
		newClient = func(token string) todoist.API { return todoist.NewClient(token) }
	}
	return &Handlers{
		store:     store,
		flow:      flow,
		gate:      gate,
		stripe:    stripe,
		publisher: publisher,
		baseURL:   baseURL,
		newClient: newClient,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func readJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
