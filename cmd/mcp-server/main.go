package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/cmd/mcp-server/auth"
	"github.com/taskbridge/todoist-mcp/cmd/mcp-server/handlers"
	"github.com/taskbridge/todoist-mcp/internal/config"
	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/oauth"
	"github.com/taskbridge/todoist-mcp/internal/session"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/internal/subscription"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

const serviceVersion = "v1.0.0"

// route is one entry in the declarative routing table. Patterns use the
// Go 1.22 "METHOD /path" ServeMux syntax.
type route struct {
	pattern string
	handler http.Handler
}

func main() {
	config.LoadEnv("../../.env")

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, cfg.LogJSON, os.Stderr)
	logging.Info("Server", "starting todoist-mcp %s", serviceVersion)

	store, err := storage.NewFromConfig(cfg)
	if err != nil {
		logging.Error("Server", err, "initializing credential store")
		os.Exit(1)
	}
	defer store.Close()

	publisher, err := events.NewPublisher(cfg.AMQPURL)
	if err != nil {
		logging.Error("Server", err, "connecting event publisher")
		os.Exit(1)
	}
	defer publisher.Close()

	var stripeProvider *subscription.StripeProvider
	var billingProvider subscription.BillingProvider
	if cfg.StripeSecretKey != "" {
		stripeProvider = subscription.NewStripeProvider(
			cfg.StripeSecretKey, cfg.StripePriceID, cfg.StripeProductID,
			cfg.StripeWebhookSecret, cfg.BaseURL, cfg.TrialDays)
		billingProvider = stripeProvider
	}
	gate := subscription.NewGate(cfg.SubscriptionEnabled, store, billingProvider, publisher)
	if cfg.SubscriptionEnabled && billingProvider == nil {
		logging.Warn("Server", "SUBSCRIPTION_ENABLED is set but Stripe is not configured; all users will be denied")
	}

	exchanger := oauth.NewTodoistExchanger(cfg.TodoistClientID, cfg.TodoistClientSecret)
	flow := oauth.NewFlow(store, exchanger, publisher, cfg.TodoistClientID, oauth.DefaultAuthorizeURL)

	h := handlers.New(store, flow, gate, stripeProvider, publisher, cfg.BaseURL, nil)

	// MCP server with per-session tool binding.
	hooks := &server.Hooks{}
	binder := session.NewBinder(store, gate, cfg.BaseURL, nil)

	mcpServer := server.NewMCPServer("TodoistMCP", serviceVersion,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	binder.Register(hooks, mcpServer)

	sseServer := server.NewSSEServer(mcpServer,
		server.WithBaseURL(cfg.BaseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithSSEContextFunc(session.ContextWithUserID),
	)

	jwtAuth := auth.NewJWTAuth(cfg.InternalAuthSecret)
	if jwtAuth == nil {
		logging.Warn("Server", "INTERNAL_AUTH_SECRET not set, /internal endpoints are unauthenticated (dev mode)")
	}

	routes := []route{
		{"GET /auth", http.HandlerFunc(h.Auth)},
		{"GET /callback", http.HandlerFunc(h.Callback)},
		{"POST /internal/get-token", auth.Middleware(jwtAuth, http.HandlerFunc(h.GetToken))},
		{"POST /internal/set-token", auth.Middleware(jwtAuth, http.HandlerFunc(h.SetToken))},
		{"POST /delete-account", http.HandlerFunc(h.DeleteAccount)},
		{"POST /create-subscription", http.HandlerFunc(h.CreateSubscription)},
		{"POST /subscription-status", http.HandlerFunc(h.SubscriptionStatus)},
		{"POST /webhook/stripe", http.HandlerFunc(h.StripeWebhook)},
		{"GET /health", http.HandlerFunc(h.Health)},
		{"GET /.well-known/oauth-authorization-server", http.HandlerFunc(h.Discovery)},
		{"GET /cancelled", http.HandlerFunc(h.Cancelled)},
		{"GET /{$}", http.HandlerFunc(h.Home)},
		{"/sse", session.RequireUserID(sseServer.SSEHandler())},
		{"/message", sseServer.MessageHandler()},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.Handle(rt.pattern, rt.handler)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logging.Info("Server", "listening on %s (SSE at %s/sse)", addr, cfg.BaseURL)
	if err := http.ListenAndServe(addr, corsMiddleware(mux)); err != nil {
		logging.Error("Server", err, "server stopped")
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
