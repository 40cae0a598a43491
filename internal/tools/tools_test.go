package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskbridge/todoist-mcp/internal/models"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
)

// fakeAPI embeds the interface so each test only implements what it calls.
type fakeAPI struct {
	todoist.API
	projects   []models.Project
	tasks      []models.Task
	tasksErr   error
	gotFilter  string
	createdCmt *todoist.CreateCommentParams
}

func (f *fakeAPI) GetProjects(ctx context.Context) ([]models.Project, error) {
	return f.projects, nil
}

func (f *fakeAPI) GetTasks(ctx context.Context, filter string) ([]models.Task, error) {
	f.gotFilter = filter
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	return f.tasks, nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, params todoist.CreateCommentParams) (*models.Comment, error) {
	f.createdCmt = &params
	return &models.Comment{ID: "c1", Content: params.Content}, nil
}

func callTool(t *testing.T, set []server.ServerTool, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, st := range set {
		if st.Tool.Name != name {
			continue
		}
		request := mcp.CallToolRequest{}
		request.Params.Name = name
		request.Params.Arguments = args
		result, err := st.Handler(context.Background(), request)
		require.NoError(t, err)
		return result
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestGetTasksBuildsProjectFilter(t *testing.T) {
	api := &fakeAPI{
		projects: []models.Project{{ID: "p1", Name: "Inbox"}, {ID: "p2", Name: "Work"}},
		tasks:    []models.Task{{ID: "t1", Content: "Ship it", Priority: 4}},
	}

	result := callTool(t, TaskTools(api), "get_tasks", map[string]any{
		"projectId":   "p2",
		"filterQuery": "today",
	})

	assert.Equal(t, "#Work & today", api.gotFilter)
	assert.Contains(t, resultText(t, result), "Ship it")
	assert.Contains(t, resultText(t, result), "with filter: #Work & today")
}

func TestGetTasksUnknownProjectIgnored(t *testing.T) {
	api := &fakeAPI{projects: []models.Project{{ID: "p1", Name: "Inbox"}}}

	callTool(t, TaskTools(api), "get_tasks", map[string]any{"projectId": "missing"})
	assert.Empty(t, api.gotFilter)
}

func TestGetTasksLimitClamped(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 150; i++ {
		tasks = append(tasks, models.Task{ID: fmt.Sprintf("t%d", i), Content: fmt.Sprintf("task %d", i)})
	}
	api := &fakeAPI{tasks: tasks}

	result := callTool(t, TaskTools(api), "get_tasks", map[string]any{"limit": float64(500)})
	assert.Contains(t, resultText(t, result), "Found 100 tasks")
}

func TestGetTasksDefaultLimit(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 50; i++ {
		tasks = append(tasks, models.Task{ID: fmt.Sprintf("t%d", i), Content: fmt.Sprintf("task %d", i)})
	}
	api := &fakeAPI{tasks: tasks}

	result := callTool(t, TaskTools(api), "get_tasks", nil)
	assert.Contains(t, resultText(t, result), "Found 20 tasks")
}

func TestGetTasksEmpty(t *testing.T) {
	result := callTool(t, TaskTools(&fakeAPI{}), "get_tasks", nil)
	assert.Contains(t, resultText(t, result), "No tasks found")
}

func TestGetTasksUpstreamErrorStaysInResult(t *testing.T) {
	api := &fakeAPI{tasksErr: errors.New("rate limited")}

	result := callTool(t, TaskTools(api), "get_tasks", nil)
	text := resultText(t, result)
	assert.Contains(t, text, "❌")
	assert.Contains(t, text, "rate limited")
}

func TestCreateCommentRequiresTarget(t *testing.T) {
	api := &fakeAPI{}

	result := callTool(t, CommentTools(api), "create_comment", map[string]any{"content": "hi"})
	assert.Contains(t, resultText(t, result), "Please provide either taskId or projectId")
	assert.Nil(t, api.createdCmt)

	result = callTool(t, CommentTools(api), "create_comment", map[string]any{
		"content": "hi", "taskId": "t1",
	})
	assert.Contains(t, resultText(t, result), "Comment Added Successfully")
	require.NotNil(t, api.createdCmt)
	assert.Equal(t, "t1", api.createdCmt.TaskID)
}

func TestDeniedToolReportsReasonAndLink(t *testing.T) {
	st := DeniedTool("Your subscription is inactive.", "https://pay.example/x")

	request := mcp.CallToolRequest{}
	request.Params.Name = "subscription_required"
	result, err := st.Handler(context.Background(), request)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Your subscription is inactive.")
	assert.Contains(t, text, "https://pay.example/x")
}

func TestAllRegistersFifteenTools(t *testing.T) {
	set := All(&fakeAPI{})
	assert.Len(t, set, 15)
}
