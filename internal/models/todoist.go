package models

// Due describes a task due date as returned by the Todoist REST API.
type Due struct {
	String      string `json:"string"`
	Date        string `json:"date,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
}

// Duration describes a task duration.
type Duration struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"` // "minute" or "day"
}

// Task is a Todoist task.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	SectionID    string    `json:"section_id,omitempty"`
	ParentID     string    `json:"parent_id,omitempty"`
	Content      string    `json:"content"`
	Description  string    `json:"description,omitempty"`
	Labels       []string  `json:"labels,omitempty"`
	Priority     int       `json:"priority"`
	Due          *Due      `json:"due,omitempty"`
	Duration     *Duration `json:"duration,omitempty"`
	AssigneeID   string    `json:"assignee_id,omitempty"`
	CreatorID    string    `json:"creator_id,omitempty"`
	IsCompleted  bool      `json:"is_completed"`
	Order        int       `json:"order,omitempty"`
	URL          string    `json:"url,omitempty"`
	CommentCount int       `json:"comment_count,omitempty"`
	CreatedAt    string    `json:"created_at,omitempty"`
}

// Project is a Todoist project.
type Project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color,omitempty"`
	ParentID       string `json:"parent_id,omitempty"`
	Order          int    `json:"order,omitempty"`
	CommentCount   int    `json:"comment_count,omitempty"`
	IsFavorite     bool   `json:"is_favorite"`
	IsShared       bool   `json:"is_shared"`
	IsInboxProject bool   `json:"is_inbox_project"`
	ViewStyle      string `json:"view_style,omitempty"`
	URL            string `json:"url,omitempty"`
}

// Section is a Todoist section inside a project.
type Section struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Order     int    `json:"order,omitempty"`
	Name      string `json:"name"`
}

// Label is a Todoist personal label.
type Label struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Order      int    `json:"order,omitempty"`
	IsFavorite bool   `json:"is_favorite"`
}

// Comment is a Todoist comment on a task or project.
type Comment struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	PostedAt  string `json:"posted_at,omitempty"`
	Content   string `json:"content"`
}

// User is the authenticated Todoist account, from the v1 user endpoint.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}
