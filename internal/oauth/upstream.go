package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskbridge/todoist-mcp/internal/models"
)

// Todoist OAuth endpoints.
const (
	DefaultAuthorizeURL = "https://todoist.com/oauth/authorize"
	DefaultTokenURL     = "https://todoist.com/oauth/access_token"
	DefaultUserURL      = "https://api.todoist.com/api/v1/user"
)

// Scope requested during authorization.
const Scope = "data:read_write"

// Exchanger talks to the upstream provider during the callback leg.
type Exchanger interface {
	// ExchangeCode trades an authorization code for a long-lived token.
	ExchangeCode(ctx context.Context, code string) (string, error)
	// FetchUser resolves the account behind a freshly issued token.
	FetchUser(ctx context.Context, token string) (*models.User, error)
}

// TodoistExchanger is the production Exchanger. URL fields are settable for
// tests.
type TodoistExchanger struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserURL      string

	httpClient *http.Client
}

// NewTodoistExchanger builds an exchanger for the given OAuth app.
func NewTodoistExchanger(clientID, clientSecret string) *TodoistExchanger {
	return &TodoistExchanger{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     DefaultTokenURL,
		UserURL:      DefaultUserURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *TodoistExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {e.ClientID},
		"client_secret": {e.ClientSecret},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Op: "token exchange", Status: resp.StatusCode, Body: string(raw)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", &UpstreamError{Op: "token exchange", Status: resp.StatusCode, Body: "unparsable token response"}
	}
	if payload.AccessToken == "" {
		return "", &UpstreamError{Op: "token exchange", Status: resp.StatusCode, Body: "no access token received"}
	}
	return payload.AccessToken, nil
}

func (e *TodoistExchanger) FetchUser(ctx context.Context, token string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.UserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Op: "profile fetch", Status: resp.StatusCode, Body: string(raw)}
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, &UpstreamError{Op: "profile fetch", Status: resp.StatusCode, Body: "unparsable user response"}
	}
	return &user, nil
}
