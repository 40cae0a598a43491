package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/models"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/internal/subscription"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
)

// fakeAPI satisfies todoist.API; only GetProjects matters for binding.
type fakeAPI struct {
	projectsErr error
}

func (f *fakeAPI) GetProjects(ctx context.Context) ([]models.Project, error) {
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return []models.Project{{ID: "p1", Name: "Inbox"}}, nil
}
func (f *fakeAPI) CreateProject(ctx context.Context, params todoist.CreateProjectParams) (*models.Project, error) {
	return nil, nil
}
func (f *fakeAPI) UpdateProject(ctx context.Context, projectID string, params todoist.UpdateProjectParams) error {
	return nil
}
func (f *fakeAPI) DeleteProject(ctx context.Context, projectID string) error { return nil }
func (f *fakeAPI) GetTasks(ctx context.Context, filter string) ([]models.Task, error) {
	return nil, nil
}
func (f *fakeAPI) CreateTask(ctx context.Context, params todoist.CreateTaskParams) (*models.Task, error) {
	return nil, nil
}
func (f *fakeAPI) UpdateTask(ctx context.Context, taskID string, params todoist.UpdateTaskParams) error {
	return nil
}
func (f *fakeAPI) CloseTask(ctx context.Context, taskID string) error  { return nil }
func (f *fakeAPI) ReopenTask(ctx context.Context, taskID string) error { return nil }
func (f *fakeAPI) GetSections(ctx context.Context, projectID string) ([]models.Section, error) {
	return nil, nil
}
func (f *fakeAPI) CreateSection(ctx context.Context, params todoist.CreateSectionParams) (*models.Section, error) {
	return nil, nil
}
func (f *fakeAPI) GetLabels(ctx context.Context) ([]models.Label, error) { return nil, nil }
func (f *fakeAPI) CreateLabel(ctx context.Context, params todoist.CreateLabelParams) (*models.Label, error) {
	return nil, nil
}
func (f *fakeAPI) GetComments(ctx context.Context, taskID, projectID string) ([]models.Comment, error) {
	return nil, nil
}
func (f *fakeAPI) CreateComment(ctx context.Context, params todoist.CreateCommentParams) (*models.Comment, error) {
	return nil, nil
}
func (f *fakeAPI) GetUser(ctx context.Context) (*models.User, error) { return nil, nil }

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func openGate(store storage.Store) *subscription.Gate {
	publisher, _ := events.NewPublisher("")
	return subscription.NewGate(false, store, nil, publisher)
}

func closedGate(store storage.Store) *subscription.Gate {
	// Flag on with no provider: everyone is denied with an explanation.
	publisher, _ := events.NewPublisher("")
	return subscription.NewGate(true, store, nil, publisher)
}

func namesOf(binder *Binder, userID string) []string {
	set := binder.SessionTools(context.Background(), userID)
	names := make([]string, 0, len(set))
	for _, st := range set {
		names = append(names, st.Tool.Name)
	}
	return names
}

func TestBindWithoutCredential(t *testing.T) {
	store := newStore(t)
	binder := NewBinder(store, openGate(store), "http://localhost:3000", func(string) todoist.API { return &fakeAPI{} })

	names := namesOf(binder, "u1")
	assert.Equal(t, []string{"setup_todoist"}, names)
}

func TestBindWithDeniedSubscription(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetToken(context.Background(), "u1", "tok"))

	binder := NewBinder(store, closedGate(store), "http://localhost:3000", func(string) todoist.API { return &fakeAPI{} })

	names := namesOf(binder, "u1")
	assert.Equal(t, []string{"subscription_required"}, names)
}

func TestBindFullToolSet(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetToken(context.Background(), "u1", "tok"))

	binder := NewBinder(store, openGate(store), "http://localhost:3000", func(string) todoist.API { return &fakeAPI{} })

	names := namesOf(binder, "u1")
	assert.ElementsMatch(t, []string{
		"list_projects", "create_project", "update_project", "delete_project",
		"get_tasks", "create_task", "update_task", "complete_task", "uncomplete_task",
		"get_sections", "create_section",
		"get_labels", "create_label",
		"get_comments", "create_comment",
	}, names)
}

func invokeSetup(t *testing.T, binder *Binder, userID, token string) *mcp.CallToolResult {
	t.Helper()
	set := binder.SessionTools(context.Background(), userID)
	require.Len(t, set, 1)
	require.Equal(t, "setup_todoist", set[0].Tool.Name)

	request := mcp.CallToolRequest{}
	request.Params.Name = "setup_todoist"
	request.Params.Arguments = map[string]any{"token": token}

	result, err := set[0].Handler(context.Background(), request)
	require.NoError(t, err)
	return result
}

func TestSetupToolRejectsInvalidToken(t *testing.T) {
	store := newStore(t)
	binder := NewBinder(store, openGate(store), "http://localhost:3000", func(string) todoist.API {
		return &fakeAPI{projectsErr: errors.New("401 unauthorized")}
	})

	result := invokeSetup(t, binder, "u1", "bad-token")
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "❌")

	_, err := store.GetToken(context.Background(), "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "failed validation must leave the store unchanged")
}

func TestSetupToolPersistsValidToken(t *testing.T) {
	store := newStore(t)
	binder := NewBinder(store, openGate(store), "http://localhost:3000", func(string) todoist.API {
		return &fakeAPI{}
	})

	result := invokeSetup(t, binder, "u1", "good-token")
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "configured successfully")

	token, err := store.GetToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "good-token", token)
}

func TestRequireUserID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireUserID(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing user_id parameter")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse?user_id=u1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Legacy parameter name still works.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse?sessionId=u1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContextCarriesUserID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/sse?user_id=u7", nil)
	ctx := ContextWithUserID(context.Background(), r)
	assert.Equal(t, "u7", UserIDFromContext(ctx))

	assert.Empty(t, UserIDFromContext(context.Background()))
}
