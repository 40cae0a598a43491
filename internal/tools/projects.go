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

// ProjectTools returns the project CRUD tools.
func ProjectTools(api todoist.API) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_projects",
				mcp.WithDescription("List all Todoist projects"),
			),
			Handler: listProjectsHandler(api),
		},
		{
			Tool: mcp.NewTool("create_project",
				mcp.WithDescription("Create a new project in Todoist"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Project name (required)")),
				mcp.WithString("parentId", mcp.Description("Parent project ID for sub-projects (optional)")),
				mcp.WithString("color", mcp.Description("Project color (optional)")),
				mcp.WithBoolean("isFavorite", mcp.Description("Mark project as favorite (optional)")),
				mcp.WithString("viewStyle", mcp.Description("View style: 'list' or 'board' (optional)"),
					mcp.Enum("list", "board")),
			),
			Handler: createProjectHandler(api),
		},
		{
			Tool: mcp.NewTool("update_project",
				mcp.WithDescription("Update an existing project"),
				mcp.WithString("projectId", mcp.Required(), mcp.Description("ID of the project to update")),
				mcp.WithString("name", mcp.Description("New project name (optional)")),
				mcp.WithString("color", mcp.Description("New project color (optional)")),
				mcp.WithBoolean("isFavorite", mcp.Description("Mark project as favorite (optional)")),
				mcp.WithString("viewStyle", mcp.Description("View style: 'list' or 'board' (optional)"),
					mcp.Enum("list", "board")),
			),
			Handler: updateProjectHandler(api),
		},
		{
			Tool: mcp.NewTool("delete_project",
				mcp.WithDescription("Delete a project"),
				mcp.WithString("projectId", mcp.Required(), mcp.Description("ID of the project to delete")),
			),
			Handler: deleteProjectHandler(api),
		},
	}
}

func listProjectsHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := api.GetProjects(ctx)
		if err != nil {
			logging.Error("Tools", err, "list_projects failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching projects:** %v", err)), nil
		}

		lines := make([]string, 0, len(projects))
		for _, p := range projects {
			lines = append(lines, fmt.Sprintf("• **%s** (%s)", p.Name, p.ID))
		}
		return mcp.NewToolResultText(fmt.Sprintf("📋 **Your Todoist Projects:**\n\n%s\n\n*Found %d projects*",
			strings.Join(lines, "\n"), len(projects))), nil
	}
}

func createProjectHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}

		project, err := api.CreateProject(ctx, todoist.CreateProjectParams{
			Name:       name,
			ParentID:   request.GetString("parentId", ""),
			Color:      request.GetString("color", ""),
			IsFavorite: request.GetBool("isFavorite", false),
			ViewStyle:  request.GetString("viewStyle", ""),
		})
		if err != nil {
			logging.Error("Tools", err, "create_project failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error creating project:** %v", err)), nil
		}

		text := fmt.Sprintf("✅ **Project Created Successfully!**\n\n📁 **Name:** %s\n🆔 **ID:** %s\n🎨 **Color:** %s",
			project.Name, project.ID, project.Color)
		if project.IsFavorite {
			text += "\n⭐ **Favorited**"
		}
		return mcp.NewToolResultText(text), nil
	}
}

func updateProjectHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString("projectId")
		if err != nil {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		params := todoist.UpdateProjectParams{
			Name:      request.GetString("name", ""),
			Color:     request.GetString("color", ""),
			ViewStyle: request.GetString("viewStyle", ""),
		}
		if raw, ok := request.GetArguments()["isFavorite"]; ok {
			if fav, ok := raw.(bool); ok {
				params.IsFavorite = &fav
			}
		}

		if err := api.UpdateProject(ctx, projectID, params); err != nil {
			logging.Error("Tools", err, "update_project failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error updating project:** %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("✅ **Project %s updated successfully!**", projectID)), nil
	}
}

func deleteProjectHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString("projectId")
		if err != nil {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		if err := api.DeleteProject(ctx, projectID); err != nil {
			logging.Error("Tools", err, "delete_project failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error deleting project:** %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("✅ **Project %s deleted successfully!**", projectID)), nil
	}
}
