// Package tools defines the MCP tool set exposed to a bound session. Each
// group returns server.ServerTool values so the session binder can register
// them per-session. Handlers report upstream failures inside their own
// result payload and never abort the session.
package tools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/internal/todoist"
)

// All returns the full task-management tool set bound to one API client.
func All(api todoist.API) []server.ServerTool {
	var set []server.ServerTool
	set = append(set, ProjectTools(api)...)
	set = append(set, TaskTools(api)...)
	set = append(set, SectionTools(api)...)
	set = append(set, LabelTools(api)...)
	set = append(set, CommentTools(api)...)
	return set
}
