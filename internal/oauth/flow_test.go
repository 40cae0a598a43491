package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/models"
	"github.com/taskbridge/todoist-mcp/internal/storage"
)

type fakeExchanger struct {
	token        string
	user         *models.User
	exchangeErr  error
	fetchErr     error
	exchanged    int
	fetchedToken string
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	f.exchanged++
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeExchanger) FetchUser(ctx context.Context, token string) (*models.User, error) {
	f.fetchedToken = token
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.user, nil
}

func newFlowFixture(t *testing.T, exchanger Exchanger) (*Flow, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	publisher, err := events.NewPublisher("")
	require.NoError(t, err)

	return NewFlow(store, exchanger, publisher, "client-id", ""), store
}

func storedState(t *testing.T, flow *Flow) string {
	t.Helper()
	authURL, err := flow.AuthorizeURL(context.Background())
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestAuthorizeURL(t *testing.T) {
	flow, _ := newFlowFixture(t, &fakeExchanger{})

	authURL, err := flow.AuthorizeURL(context.Background())
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "todoist.com", parsed.Host)
	assert.Equal(t, "client-id", parsed.Query().Get("client_id"))
	assert.Equal(t, Scope, parsed.Query().Get("scope"))
	assert.NotEmpty(t, parsed.Query().Get("state"))
}

func TestAuthorizeURLWithoutClientID(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:", "")
	require.NoError(t, err)
	defer store.Close()
	publisher, _ := events.NewPublisher("")

	flow := NewFlow(store, &fakeExchanger{}, publisher, "", "")
	_, err = flow.AuthorizeURL(context.Background())
	assert.Error(t, err)
}

func TestCallbackMissingParams(t *testing.T) {
	flow, _ := newFlowFixture(t, &fakeExchanger{})

	var badReq *BadRequestError
	_, err := flow.HandleCallback(context.Background(), "", "state")
	require.ErrorAs(t, err, &badReq)
	assert.Equal(t, "Missing authorization code or state", badReq.Msg)

	_, err = flow.HandleCallback(context.Background(), "code", "")
	assert.ErrorAs(t, err, &badReq)
}

func TestCallbackInvalidState(t *testing.T) {
	exchanger := &fakeExchanger{token: "tok"}
	flow, _ := newFlowFixture(t, exchanger)

	var badReq *BadRequestError
	_, err := flow.HandleCallback(context.Background(), "code", "never-issued")
	require.ErrorAs(t, err, &badReq)
	assert.Equal(t, "Invalid or expired state parameter", badReq.Msg)
	assert.Zero(t, exchanger.exchanged, "code must not be exchanged with a bad state")
}

func TestCallbackNewUser(t *testing.T) {
	ctx := context.Background()
	exchanger := &fakeExchanger{token: "tok-1", user: &models.User{ID: "td-9"}}
	flow, store := newFlowFixture(t, exchanger)

	state := storedState(t, flow)
	userID, err := flow.HandleCallback(ctx, "code", state)
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	token, err := store.GetToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	linked, err := store.GetUserIDByTodoistID(ctx, "td-9")
	require.NoError(t, err)
	assert.Equal(t, userID, linked)
}

func TestCallbackReturningUserKeepsID(t *testing.T) {
	ctx := context.Background()
	exchanger := &fakeExchanger{token: "tok-1", user: &models.User{ID: "td-9"}}
	flow, store := newFlowFixture(t, exchanger)

	state := storedState(t, flow)
	firstID, err := flow.HandleCallback(ctx, "code", state)
	require.NoError(t, err)

	// Same Todoist account comes back with a new token.
	exchanger.token = "tok-2"
	state = storedState(t, flow)
	secondID, err := flow.HandleCallback(ctx, "code", state)
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID, "integration URLs already handed out must stay valid")
	token, err := store.GetToken(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

func TestCallbackStateSingleUse(t *testing.T) {
	ctx := context.Background()
	exchanger := &fakeExchanger{token: "tok", user: &models.User{ID: "td-1"}}
	flow, _ := newFlowFixture(t, exchanger)

	state := storedState(t, flow)
	_, err := flow.HandleCallback(ctx, "code", state)
	require.NoError(t, err)

	var badReq *BadRequestError
	_, err = flow.HandleCallback(ctx, "code", state)
	assert.ErrorAs(t, err, &badReq)
}

func TestCallbackProfileFetchFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	exchanger := &fakeExchanger{token: "tok", fetchErr: errors.New("upstream down")}
	flow, store := newFlowFixture(t, exchanger)

	state := storedState(t, flow)
	_, err := flow.HandleCallback(ctx, "code", state)
	require.Error(t, err)

	// The freshly issued token must not be persisted anywhere.
	_, err = store.GetUserIDByTodoistID(ctx, "td-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTodoistExchanger(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cid", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		fmt.Fprint(w, `{"access_token":"issued-token"}`)
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer issued-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"td-42","full_name":"Ada","email":"ada@example.com"}`)
	}))
	defer userSrv.Close()

	exchanger := NewTodoistExchanger("cid", "secret")
	exchanger.TokenURL = tokenSrv.URL
	exchanger.UserURL = userSrv.URL

	token, err := exchanger.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)

	user, err := exchanger.FetchUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "td-42", user.ID)
}

func TestTodoistExchangerUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer srv.Close()

	exchanger := NewTodoistExchanger("cid", "secret")
	exchanger.TokenURL = srv.URL

	var upstream *UpstreamError
	_, err := exchanger.ExchangeCode(context.Background(), "nope")
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
}

func TestTodoistExchangerEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	exchanger := NewTodoistExchanger("cid", "secret")
	exchanger.TokenURL = srv.URL

	var upstream *UpstreamError
	_, err := exchanger.ExchangeCode(context.Background(), "code")
	assert.ErrorAs(t, err, &upstream)
}
