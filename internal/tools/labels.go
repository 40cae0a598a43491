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

// LabelTools returns the label tools.
func LabelTools(api todoist.API) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get_labels",
				mcp.WithDescription("Get all labels"),
			),
			Handler: getLabelsHandler(api),
		},
		{
			Tool: mcp.NewTool("create_label",
				mcp.WithDescription("Create a new label"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Label name (required)")),
				mcp.WithString("color", mcp.Description("Label color (optional)")),
				mcp.WithNumber("order", mcp.Description("Label order/position (optional)")),
				mcp.WithBoolean("isFavorite", mcp.Description("Mark label as favorite (optional)")),
			),
			Handler: createLabelHandler(api),
		},
	}
}

func getLabelsHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		labels, err := api.GetLabels(ctx)
		if err != nil {
			logging.Error("Tools", err, "get_labels failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error fetching labels:** %v", err)), nil
		}

		if len(labels) == 0 {
			return mcp.NewToolResultText("🏷️ **No labels found**"), nil
		}

		lines := make([]string, 0, len(labels))
		for _, l := range labels {
			line := fmt.Sprintf("• **%s** (%s) - Color: %s", l.Name, l.ID, l.Color)
			if l.IsFavorite {
				line += " ⭐"
			}
			lines = append(lines, line)
		}
		return mcp.NewToolResultText(fmt.Sprintf("🏷️ **Your Labels:**\n\n%s\n\n*Found %d labels*",
			strings.Join(lines, "\n"), len(labels))), nil
	}
}

func createLabelHandler(api todoist.API) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}

		label, err := api.CreateLabel(ctx, todoist.CreateLabelParams{
			Name:       name,
			Color:      request.GetString("color", ""),
			Order:      request.GetInt("order", 0),
			IsFavorite: request.GetBool("isFavorite", false),
		})
		if err != nil {
			logging.Error("Tools", err, "create_label failed")
			return mcp.NewToolResultText(fmt.Sprintf("❌ **Error creating label:** %v", err)), nil
		}

		text := fmt.Sprintf("✅ **Label Created Successfully!**\n\n🏷️ **Name:** %s\n🆔 **ID:** %s\n🎨 **Color:** %s",
			label.Name, label.ID, label.Color)
		if label.IsFavorite {
			text += "\n⭐ **Favorited**"
		}
		return mcp.NewToolResultText(text), nil
	}
}
