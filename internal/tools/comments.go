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

// CommentTools returns the comment tools.
func CommentTools(api todoist.API) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get_comments",
				mcp.WithDescription("Get comments for a task or project"),
				mcp.WithString("taskId", mcp.Description("Task ID to get comments from (provide either taskId or projectId)")),
				mcp.WithString("projectId", mcp.Description("Project ID to get comments from (provide either taskId or projectId)")),
			),
			Handler: getCommentsHandler(api),
		},
		{
			Tool: mcp.NewTool("create_comment",
				mcp.WithDescription("Add a comment to a task or project"),
				mcp.WithString("content", mcp.Required(), mcp.Description("Comment content (required)")),
				mcp.WithString("taskId", mcp.Description("Task ID to comment on (provide either taskId or projectId)")),
				mcp.WithString("projectId", mcp.Description("Project ID to comment on (provide either taskId or projectId)")),
			),
			Handler: createCommentHandler(api),
		},
	}
}

func getCommentsHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := request.GetString("taskId", "")
		projectID := request.GetString("projectId", "")

		if taskID == "" && projectID == "" {
			return mcp.NewToolResultText("❌ **Error:** Please provide either taskId or projectId"), nil
		}

		comments, err := api.GetComments(ctx, taskID, projectID)
		if err != nil {
			logging.Error("Tools", err, "get_comments failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching comments:** %v", err)), nil
		}

		if len(comments) == 0 {
			target := fmt.Sprintf("project %s", projectID)
			if taskID != "" {
				target = fmt.Sprintf("task %s", taskID)
			}
			return mcp.NewToolResultText(fmt.Sprintf("💬 **No comments found** for %s", target)), nil
		}

		lines := make([]string, 0, len(comments))
		for _, c := range comments {
			lines = append(lines, fmt.Sprintf("• **%s** (%s)\n  Posted: %s", c.Content, c.ID, c.PostedAt))
		}
		return mcp.NewToolResultText(fmt.Sprintf("💬 **Comments:**\n\n%s\n\n*Found %d comments*",
			strings.Join(lines, "\n\n"), len(comments))), nil
	}
}

func createCommentHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		taskID := request.GetString("taskId", "")
		projectID := request.GetString("projectId", "")
		if taskID == "" && projectID == "" {
			return mcp.NewToolResultText("❌ **Error:** Please provide either taskId or projectId"), nil
		}

		comment, err := api.CreateComment(ctx, todoist.CreateCommentParams{
			Content:   content,
			TaskID:    taskID,
			ProjectID: projectID,
		})
		if err != nil {
			logging.Error("Tools", err, "create_comment failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error creating comment:** %v", err)), nil
		}

		target := fmt.Sprintf("Project %s", projectID)
		if taskID != "" {
			target = fmt.Sprintf("Task %s", taskID)
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"✅ **Comment Added Successfully!**\n\n💬 **Content:** %s\n🆔 **ID:** %s\n📍 **Target:** %s",
			comment.Content, comment.ID, target)), nil
	}
}
