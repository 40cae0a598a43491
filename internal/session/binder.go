// Package session resolves the per-session MCP tool set. Every SSE
// connection carries a user_id query parameter; the binder looks up that
// user's credential and subscription standing at registration time and
// exposes exactly the tools the user may call.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/internal/subscription"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
	"github.com/taskbridge/todoist-mcp/internal/tools"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromRequest reads the session identifier from the connection URL.
// sessionId is accepted for older integrations.
func UserIDFromRequest(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return r.URL.Query().Get("sessionId")
}

// ContextWithUserID is the SSE context func: it carries the connection's
// user id into every handler invoked for that session.
func ContextWithUserID(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, userIDKey, UserIDFromRequest(r))
}

// UserIDFromContext returns the session's user id, or "" when the context
// did not pass through ContextWithUserID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireUserID rejects anonymous connections before any session state is
// created. Unidentified sessions would otherwise accumulate storage for
// every stray probe that connects.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromRequest(r) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Missing user_id parameter. Connect with ?user_id=<your-id> or complete the web setup first.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Binder decides which tools a new session gets.
type Binder struct {
	store     storage.Store
	gate      *subscription.Gate
	baseURL   string
	newClient func(token string) todoist.API
}

// NewBinder wires the binder. newClient may be nil, in which case live
// Todoist clients are used.
func NewBinder(store storage.Store, gate *subscription.Gate, baseURL string, newClient func(token string) todoist.API) *Binder {
	if newClient == nil {
		newClient = func(token string) todoist.API { return todoist.NewClient(token) }
	}
	return &Binder{store: store, gate: gate, baseURL: baseURL, newClient: newClient}
}

// SessionTools resolves the tool set for one user:
// no credential → setup only; subscription denied → denial notice only;
// otherwise the full task-management set bound to a fresh client.
func (b *Binder) SessionTools(ctx context.Context, userID string) []server.ServerTool {
	token, err := b.store.GetToken(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Error("Session", err, "loading credential for user %s", userID)
		}
		return []server.ServerTool{tools.SetupTool(userID, b.store.SetToken, b.newClient, b.baseURL)}
	}

	if check := b.gate.Check(ctx, userID); !check.Active {
		logging.Info("Session", "subscription denied for user %s: %s", userID, check.Message)
		return []server.ServerTool{tools.DeniedTool(check.Message, check.PaymentURL)}
	}

	return tools.All(b.newClient(token))
}

// Register installs the binder as the server's session hook. Tools are
// attached per session id so concurrent sessions for different users never
// see each other's tool set.
func (b *Binder) Register(hooks *server.Hooks, mcpServer *server.MCPServer) {
	hooks.AddOnRegisterSession(func(ctx context.Context, sess server.ClientSession) {
		userID := UserIDFromContext(ctx)
		if userID == "" {
			// RequireUserID should have rejected this upstream.
			logging.Warn("Session", "session %s registered without user id", sess.SessionID())
			return
		}

		set := b.SessionTools(ctx, userID)
		if err := mcpServer.AddSessionTools(sess.SessionID(), set...); err != nil {
			logging.Error("Session", err, "binding tools for session %s", sess.SessionID())
			return
		}
		logging.Info("Session", "session %s bound for user %s with %d tools", sess.SessionID(), userID, len(set))
	})
}
