package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/taskbridge/todoist-mcp/internal/cache"
	"github.com/taskbridge/todoist-mcp/internal/models"
)

const (
	// DefaultRestURL is the Todoist REST API v2 base.
	DefaultRestURL = "https://api.todoist.com/rest/v2"
	// DefaultUserURL is the v1 endpoint returning the authenticated account.
	DefaultUserURL = "https://api.todoist.com/api/v1/user"
)

const projectCacheTTL = 30 * time.Second

// Shared HTTP client with connection pooling.
var sharedHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// API is the slice of the Todoist REST surface used by the MCP tools and
// the OAuth flow.
type API interface {
	GetProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, params CreateProjectParams) (*models.Project, error)
	UpdateProject(ctx context.Context, projectID string, params UpdateProjectParams) error
	DeleteProject(ctx context.Context, projectID string) error

	GetTasks(ctx context.Context, filter string) ([]models.Task, error)
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID string, params UpdateTaskParams) error
	CloseTask(ctx context.Context, taskID string) error
	ReopenTask(ctx context.Context, taskID string) error

	GetSections(ctx context.Context, projectID string) ([]models.Section, error)
	CreateSection(ctx context.Context, params CreateSectionParams) (*models.Section, error)

	GetLabels(ctx context.Context) ([]models.Label, error)
	CreateLabel(ctx context.Context, params CreateLabelParams) (*models.Label, error)

	GetComments(ctx context.Context, taskID, projectID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, params CreateCommentParams) (*models.Comment, error)

	GetUser(ctx context.Context) (*models.User, error)
}

// Client wraps the Todoist REST API with bearer-token auth.
type Client struct {
	token      string
	restURL    string
	userURL    string
	httpClient *http.Client
	projects   *cache.TTLCache
}

// NewClient creates a client bound to one user's token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		restURL:    DefaultRestURL,
		userURL:    DefaultUserURL,
		httpClient: sharedHTTPClient,
		projects:   cache.New(),
	}
}

// NewClientForBase is NewClient with overridden endpoints, for tests.
func NewClientForBase(token, restURL, userURL string) *Client {
	c := NewClient(token)
	c.restURL = restURL
	c.userURL = userURL
	return c
}

// do issues one authenticated request. A nil out skips decoding (204-style
// endpoints). Non-2xx responses become errors carrying the body.
func (c *Client) do(ctx context.Context, method, rawURL string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("todoist: %s %s: status %d: %s", method, rawURL, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetProjects lists all projects. Results are cached briefly because tool
// handlers resolve project names on most task listings.
func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	if cached, ok := c.projects.Get("projects"); ok {
		return cached.([]models.Project), nil
	}

	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, c.restURL+"/projects", nil, &projects); err != nil {
		return nil, err
	}
	c.projects.Set("projects", projects, projectCacheTTL)
	return projects, nil
}

// CreateProjectParams are the fields accepted by project creation.
type CreateProjectParams struct {
	Name       string `json:"name"`
	ParentID   string `json:"parent_id,omitempty"`
	Color      string `json:"color,omitempty"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
	ViewStyle  string `json:"view_style,omitempty"`
}

func (c *Client) CreateProject(ctx context.Context, params CreateProjectParams) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodPost, c.restURL+"/projects", params, &project); err != nil {
		return nil, err
	}
	c.projects.Delete("projects")
	return &project, nil
}

// UpdateProjectParams are the mutable project fields. Pointer fields are
// omitted when nil so partial updates do not clear values.
type UpdateProjectParams struct {
	Name       string `json:"name,omitempty"`
	Color      string `json:"color,omitempty"`
	IsFavorite *bool  `json:"is_favorite,omitempty"`
	ViewStyle  string `json:"view_style,omitempty"`
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, params UpdateProjectParams) error {
	err := c.do(ctx, http.MethodPost, c.restURL+"/projects/"+projectID, params, nil)
	if err == nil {
		c.projects.Delete("projects")
	}
	return err
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	err := c.do(ctx, http.MethodDelete, c.restURL+"/projects/"+projectID, nil, nil)
	if err == nil {
		c.projects.Delete("projects")
	}
	return err
}

// GetTasks lists active tasks, optionally narrowed by a Todoist filter
// expression.
func (c *Client) GetTasks(ctx context.Context, filter string) ([]models.Task, error) {
	rawURL := c.restURL + "/tasks"
	if filter != "" {
		rawURL += "?filter=" + url.QueryEscape(filter)
	}

	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, rawURL, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTaskParams are the fields accepted by task creation.
type CreateTaskParams struct {
	Content      string   `json:"content"`
	Description  string   `json:"description,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
	SectionID    string   `json:"section_id,omitempty"`
	ParentID     string   `json:"parent_id,omitempty"`
	Order        int      `json:"order,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Priority     int      `json:"priority,omitempty"`
	AssigneeID   string   `json:"assignee_id,omitempty"`
	DueString    string   `json:"due_string,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	DueDatetime  string   `json:"due_datetime,omitempty"`
	DueLang      string   `json:"due_lang,omitempty"`
	Duration     int      `json:"duration,omitempty"`
	DurationUnit string   `json:"duration_unit,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, c.restURL+"/tasks", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskParams are the mutable task fields.
type UpdateTaskParams struct {
	Content     string   `json:"content,omitempty"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	DueString   string   `json:"due_string,omitempty"`
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, params UpdateTaskParams) error {
	return c.do(ctx, http.MethodPost, c.restURL+"/tasks/"+taskID, params, nil)
}

func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, c.restURL+"/tasks/"+taskID+"/close", struct{}{}, nil)
}

func (c *Client) ReopenTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, c.restURL+"/tasks/"+taskID+"/reopen", struct{}{}, nil)
}

// GetSections lists sections, optionally scoped to one project.
func (c *Client) GetSections(ctx context.Context, projectID string) ([]models.Section, error) {
	rawURL := c.restURL + "/sections"
	if projectID != "" {
		rawURL += "?project_id=" + url.QueryEscape(projectID)
	}

	var sections []models.Section
	if err := c.do(ctx, http.MethodGet, rawURL, nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// CreateSectionParams are the fields accepted by section creation.
type CreateSectionParams struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	Order     int    `json:"order,omitempty"`
}

func (c *Client) CreateSection(ctx context.Context, params CreateSectionParams) (*models.Section, error) {
	var section models.Section
	if err := c.do(ctx, http.MethodPost, c.restURL+"/sections", params, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

func (c *Client) GetLabels(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	if err := c.do(ctx, http.MethodGet, c.restURL+"/labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabelParams are the fields accepted by label creation.
type CreateLabelParams struct {
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Order      int    `json:"order,omitempty"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
}

func (c *Client) CreateLabel(ctx context.Context, params CreateLabelParams) (*models.Label, error) {
	var label models.Label
	if err := c.do(ctx, http.MethodPost, c.restURL+"/labels", params, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// GetComments lists comments for a task or a project; exactly one of the
// ids should be set.
func (c *Client) GetComments(ctx context.Context, taskID, projectID string) ([]models.Comment, error) {
	query := url.Values{}
	if taskID != "" {
		query.Set("task_id", taskID)
	}
	if projectID != "" {
		query.Set("project_id", projectID)
	}

	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, c.restURL+"/comments?"+query.Encode(), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateCommentParams are the fields accepted by comment creation.
type CreateCommentParams struct {
	Content   string `json:"content"`
	TaskID    string `json:"task_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

func (c *Client) CreateComment(ctx context.Context, params CreateCommentParams) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, c.restURL+"/comments", params, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetUser returns the account behind the token. The OAuth flow uses the
// returned id to detect returning users.
func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, c.userURL, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
