package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/internal/todoist"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

const maxTaskLimit = 100

// TaskTools returns the task CRUD tools.
func TaskTools(api todoist.API) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get_tasks",
				mcp.WithDescription("Get tasks from Todoist with optional filtering"),
				mcp.WithString("projectId", mcp.Description("Filter by project ID (optional)")),
				mcp.WithString("filterQuery", mcp.Description("Todoist filter query (optional)")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default: 20, max: 100)")),
			),
			Handler: getTasksHandler(api),
		},
		{
			Tool: mcp.NewTool("create_task",
				mcp.WithDescription("Create a new task in Todoist"),
				mcp.WithString("content", mcp.Required(), mcp.Description("Task content/title (required, non-empty)")),
				mcp.WithString("description", mcp.Description("Task description (optional)")),
				mcp.WithString("projectId", mcp.Description("Project ID (optional)")),
				mcp.WithString("sectionId", mcp.Description("Section ID (optional)")),
				mcp.WithString("parentId", mcp.Description("Parent task ID for subtasks (optional)")),
				mcp.WithNumber("order", mcp.Description("Order/position (optional)")),
				mcp.WithArray("labels", mcp.Description("Array of label names (optional)"),
					mcp.Items(map[string]any{"type": "string"})),
				mcp.WithNumber("priority", mcp.Description("Priority 1-4, where 4 is highest priority (optional)")),
				mcp.WithString("assigneeId", mcp.Description("User ID to assign the task to (optional)")),
				mcp.WithString("dueString", mcp.Description("Due date in natural language, e.g. 'tomorrow at 3pm' (optional)")),
				mcp.WithString("dueDate", mcp.Description("Due date in YYYY-MM-DD format (optional)")),
				mcp.WithString("dueDatetime", mcp.Description("Due datetime in RFC3339 format (optional)")),
				mcp.WithString("dueLang", mcp.Description("Language for parsing due_string (optional)")),
				mcp.WithNumber("duration", mcp.Description("Duration amount (optional)")),
				mcp.WithString("durationUnit", mcp.Description("Duration unit: 'minute' or 'day' (optional)"),
					mcp.Enum("minute", "day")),
			),
			Handler: createTaskHandler(api),
		},
		{
			Tool: mcp.NewTool("update_task",
				mcp.WithDescription("Update an existing task"),
				mcp.WithString("taskId", mcp.Required(), mcp.Description("ID of the task to update")),
				mcp.WithString("content", mcp.Description("New task content/title (optional)")),
				mcp.WithString("description", mcp.Description("New task description (optional)")),
				mcp.WithArray("labels", mcp.Description("New list of label names (optional)"),
					mcp.Items(map[string]any{"type": "string"})),
				mcp.WithNumber("priority", mcp.Description("New priority (1-4, optional)")),
				mcp.WithString("dueString", mcp.Description("New due date (optional)")),
			),
			Handler: updateTaskHandler(api),
		},
		{
			Tool: mcp.NewTool("complete_task",
				mcp.WithDescription("Mark a task as completed"),
				mcp.WithString("taskId", mcp.Required(), mcp.Description("ID of the task to complete")),
			),
			Handler: completeTaskHandler(api),
		},
		{
			Tool: mcp.NewTool("uncomplete_task",
				mcp.WithDescription("Mark a completed task as active again"),
				mcp.WithString("taskId", mcp.Required(), mcp.Description("ID of the task to uncomplete")),
			),
			Handler: uncompleteTaskHandler(api),
		},
	}
}

func getTasksHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit > maxTaskLimit {
			limit = maxTaskLimit
		}
		if limit < 1 {
			limit = 1
		}

		var filterParts []string

		if projectID := request.GetString("projectId", ""); projectID != "" {
			projects, err := api.GetProjects(ctx)
			if err != nil {
				logging.Error("Tools", err, "get_tasks: resolving project name")
				return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching tasks:** %v", err)), nil
			}
			for _, p := range projects {
				if p.ID == projectID {
					filterParts = append(filterParts, "#"+p.Name)
					break
				}
			}
		}

		if fq := request.GetString("filterQuery", ""); fq != "" {
			filterParts = append(filterParts, fq)
		}

		filter := strings.Join(filterParts, " & ")
		tasks, err := api.GetTasks(ctx, filter)
		if err != nil {
			logging.Error("Tools", err, "get_tasks failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching tasks:** %v", err)), nil
		}

		if len(tasks) > limit {
			tasks = tasks[:limit]
		}

		if len(tasks) == 0 {
			return mcp.NewToolResultText("📝 **No tasks found** matching your criteria."), nil
		}

		lines := make([]string, 0, len(tasks))
		for _, task := range tasks {
			line := fmt.Sprintf("• **%s** (%s)\n  Priority: %d", task.Content, task.ID, task.Priority)
			if task.Due != nil && task.Due.String != "" {
				line += fmt.Sprintf("\n  Due: %s", task.Due.String)
			}
			if task.Description != "" {
				line += fmt.Sprintf("\n  Description: %s", task.Description)
			}
			lines = append(lines, line)
		}

		summary := fmt.Sprintf("*Found %d tasks", len(tasks))
		if filter != "" {
			summary += fmt.Sprintf(" with filter: %s", filter)
		}
		summary += "*"

		return mcp.NewToolResultText(fmt.Sprintf("📝 **Your Tasks:**\n\n%s\n\n%s",
			strings.Join(lines, "\n\n"), summary)), nil
	}
}

func createTaskHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil || content == "" {
			return mcp.NewToolResultError("content is required and must be non-empty"), nil
		}

		task, err := api.CreateTask(ctx, todoist.CreateTaskParams{
			Content:      content,
			Description:  request.GetString("description", ""),
			ProjectID:    request.GetString("projectId", ""),
			SectionID:    request.GetString("sectionId", ""),
			ParentID:     request.GetString("parentId", ""),
			Order:        request.GetInt("order", 0),
			Labels:       request.GetStringSlice("labels", nil),
			Priority:     request.GetInt("priority", 0),
			AssigneeID:   request.GetString("assigneeId", ""),
			DueString:    request.GetString("dueString", ""),
			DueDate:      request.GetString("dueDate", ""),
			DueDatetime:  request.GetString("dueDatetime", ""),
			DueLang:      request.GetString("dueLang", ""),
			Duration:     request.GetInt("duration", 0),
			DurationUnit: request.GetString("durationUnit", ""),
		})
		if err != nil {
			logging.Error("Tools", err, "create_task failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error creating task:** %v", err)), nil
		}

		text := fmt.Sprintf("✅ **Task Created Successfully!**\n\n📋 **Task:** %s\n🆔 **ID:** %s\n📁 **Priority:** %d",
			task.Content, task.ID, task.Priority)
		if task.Due != nil && task.Due.String != "" {
			text += fmt.Sprintf("\n📅 **Due:** %s", task.Due.String)
		}
		if task.Description != "" {
			text += fmt.Sprintf("\n📝 **Description:** %s", task.Description)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func updateTaskHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("taskId")
		if err != nil {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		err = api.UpdateTask(ctx, taskID, todoist.UpdateTaskParams{
			Content:     request.GetString("content", ""),
			Description: request.GetString("description", ""),
			Labels:      request.GetStringSlice("labels", nil),
			Priority:    request.GetInt("priority", 0),
			DueString:   request.GetString("dueString", ""),
		})
		if err != nil {
			logging.Error("Tools", err, "update_task failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error updating task:** %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("✅ **Task %s updated successfully!**", taskID)), nil
	}
}

func completeTaskHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("taskId")
		if err != nil {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		if err := api.CloseTask(ctx, taskID); err != nil {
			logging.Error("Tools", err, "complete_task failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error completing task:** %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("✅ **Task %s marked as completed!**", taskID)), nil
	}
}

func uncompleteTaskHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("taskId")
		if err != nil {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		if err := api.ReopenTask(ctx, taskID); err != nil {
			logging.Error("Tools", err, "uncomplete_task failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error uncompleting task:** %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("🔄 **Task %s marked as active again!**", taskID)), nil
	}
}
