package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DeniedTool is the single tool registered when the subscription gate denies
// a session. It reports the denial reason and, when one could be created,
// the checkout link. No task-management tools coexist with it.
func DeniedTool(message, paymentURL string) server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool("subscription_required",
			mcp.WithDescription("Shows why Todoist tools are unavailable and how to subscribe"),
		),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text := fmt.Sprintf("🔒 **Subscription Required**\n\n%s", message)
			if paymentURL != "" {
				text += fmt.Sprintf("\n\n💳 **Subscribe here:** %s", paymentURL)
			}
			text += "\n\n✨ New users get a 3-day free trial"
			return mcp.NewToolResultText(text), nil
		},
	}
}
