package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/taskbridge/todoist-mcp/internal/config"
	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// Flow implements the authorization round-trip against Todoist: state
// issuance, callback validation, code exchange, and user resolution.
type Flow struct {
	store        storage.Store
	exchanger    Exchanger
	publisher    events.Publisher
	clientID     string
	authorizeURL string
}

// NewFlow wires the flow. authorizeURL falls back to the Todoist default
// when empty.
func NewFlow(store storage.Store, exchanger Exchanger, publisher events.Publisher, clientID, authorizeURL string) *Flow {
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	return &Flow{
		store:        store,
		exchanger:    exchanger,
		publisher:    publisher,
		clientID:     clientID,
		authorizeURL: authorizeURL,
	}
}

// AuthorizeURL mints a state token, persists it, and returns the upstream
// authorization URL to redirect the user to.
func (f *Flow) AuthorizeURL(ctx context.Context) (string, error) {
	if f.clientID == "" {
		return "", &config.ConfigError{Key: "TODOIST_CLIENT_ID"}
	}

	state := uuid.NewString()
	if err := f.store.StoreOAuthState(ctx, state); err != nil {
		return "", err
	}

	query := url.Values{
		"client_id": {f.clientID},
		"scope":     {Scope},
		"state":     {state},
	}
	return f.authorizeURL + "?" + query.Encode(), nil
}

// HandleCallback runs the callback leg and returns the local user id to
// redirect to. Nothing is persisted on any failure path: the credential is
// only written once the upstream account id is known.
func (f *Flow) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", &BadRequestError{Msg: "Missing authorization code or state"}
	}

	ok, err := f.store.ValidateAndConsumeState(ctx, state)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &BadRequestError{Msg: "Invalid or expired state parameter"}
	}

	token, err := f.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	user, err := f.exchanger.FetchUser(ctx, token)
	if err != nil {
		// The freshly issued token is discarded, never stored.
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("upstream returned an empty user id")
	}

	userID, err := f.store.GetUserIDByTodoistID(ctx, user.ID)
	switch {
	case err == nil:
		// Returning user: keep the local id (it is baked into integration
		// URLs already handed out) and replace the credential.
		if err := f.store.SetToken(ctx, userID, token); err != nil {
			return "", err
		}
		logging.Info("OAuth", "refreshed token for returning user %s", userID)

	case errors.Is(err, storage.ErrNotFound):
		userID = uuid.NewString()
		if err := f.store.SetToken(ctx, userID, token); err != nil {
			return "", err
		}
		if err := f.store.LinkTodoistUser(ctx, user.ID, userID); err != nil {
			return "", err
		}
		logging.Info("OAuth", "linked new user %s", userID)

	default:
		return "", err
	}

	f.publisher.Publish(ctx, events.UserLinked, map[string]string{
		"user_id":         userID,
		"todoist_user_id": user.ID,
	})
	return userID, nil
}
