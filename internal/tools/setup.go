package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

const setupSuccessText = "✅ **Todoist API token configured successfully!**\n\n" +
	"💡 **For better user management**, consider using the web setup at: %s\n\n" +
	"🔄 **Please refresh Claude integrations** (remove and re-add this server) to enable all Todoist tools.\n\n" +
	"📋 Available tools after refresh:\n" +
	"• list_projects, create_project, update_project, delete_project\n" +
	"• get_tasks, create_task, update_task, complete_task, uncomplete_task\n" +
	"• get_sections, create_section\n" +
	"• get_labels, create_label\n" +
	"• get_comments, create_comment"

const setupStorageErrorText = "❌ **Storage Error:** Database storage is not available.\n\n" +
	"🔧 **This is a server configuration issue.** Please contact the server administrator.\n\n" +
	"💡 The server needs proper SQL storage configuration to store user tokens securely."

const setupValidationErrorText = "❌ **Error configuring Todoist token:** %v\n\n" +
	"💡 **Please check:**\n" +
	"• Token is valid and copied correctly\n" +
	"• You have access to https://todoist.com/prefs/integrations\n" +
	"• Token has proper permissions"

// SetupTool returns the single onboarding tool registered when a session has
// no stored credential. The candidate token is validated with one live
// project listing before being persisted; a token that fails validation is
// never written. newClient lets tests point validation at a fake endpoint.
func SetupTool(
	userID string,
	persist func(ctx context.Context, userID, token string) error,
	newClient func(token string) todoist.API,
	baseURL string,
) server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool("setup_todoist",
			mcp.WithDescription("Configure your Todoist API token to enable task management"),
			mcp.WithString("token", mcp.Required(),
				mcp.Description("Your Todoist API token (get it from https://todoist.com/prefs/integrations)")),
		),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			token, err := request.RequireString("token")
			if err != nil || token == "" {
				return mcp.NewToolResultError("token is required"), nil
			}

			logging.Info("Tools", "setup_todoist: validating token for user %s", userID)
			if _, err := newClient(token).GetProjects(ctx); err != nil {
				logging.Warn("Tools", "setup_todoist: token validation failed for user %s: %v", userID, err)
				return mcp.NewToolResultText(fmt.Sprintf(setupValidationErrorText, err)), nil
			}

			if err := persist(ctx, userID, token); err != nil {
				logging.Error("Tools", err, "setup_todoist: storing token for user %s", userID)
				var storageErr *storage.StorageError
				if errors.As(err, &storageErr) {
					return mcp.NewToolResultText(setupStorageErrorText), nil
				}
				return mcp.NewToolResultText(fmt.Sprintf(setupValidationErrorText, err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf(setupSuccessText, baseURL)), nil
		},
	}
}
