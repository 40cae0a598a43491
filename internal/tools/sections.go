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

// SectionTools returns the section tools.
func SectionTools(api todoist.API) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get_sections",
				mcp.WithDescription("Get all sections in a project"),
				mcp.WithString("projectId", mcp.Description("Project ID to get sections from (optional, gets all sections if not provided)")),
			),
			Handler: getSectionsHandler(api),
		},
		{
			Tool: mcp.NewTool("create_section",
				mcp.WithDescription("Create a new section in a project"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Section name (required)")),
				mcp.WithString("projectId", mcp.Required(), mcp.Description("Project ID where the section will be created (required)")),
				mcp.WithNumber("order", mcp.Description("Section order/position (optional)")),
			),
			Handler: createSectionHandler(api),
		},
	}
}

func getSectionsHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := request.GetString("projectId", "")

		sections, err := api.GetSections(ctx, projectID)
		if err != nil {
			logging.Error("Tools", err, "get_sections failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching sections:** %v", err)), nil
		}

		if len(sections) == 0 {
			text := "📋 **No sections found**"
			if projectID != "" {
				text += fmt.Sprintf(" in project %s", projectID)
			}
			return mcp.NewToolResultText(text), nil
		}

		lines := make([]string, 0, len(sections))
		for _, s := range sections {
			lines = append(lines, fmt.Sprintf("• **%s** (%s) - Project: %s", s.Name, s.ID, s.ProjectID))
		}
		return mcp.NewToolResultText(fmt.Sprintf("📋 **Sections:**\n\n%s\n\n*Found %d sections*",
			strings.Join(lines, "\n"), len(sections))), nil
	}
}

func createSectionHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		projectID, err := request.RequireString("projectId")
		if err != nil {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		section, err := api.CreateSection(ctx, todoist.CreateSectionParams{
			Name:      name,
			ProjectID: projectID,
			Order:     request.GetInt("order", 0),
		})
		if err != nil {
			logging.Error("Tools", err, "create_section failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error creating section:** %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"✅ **Section Created Successfully!**\n\n📂 **Name:** %s\n🆔 **ID:** %s\n📁 **Project:** %s",
			section.Name, section.ID, section.ProjectID)), nil
	}
}
