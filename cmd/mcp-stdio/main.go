// Local stdio transport: runs the full tool set against a single token from
// TODOIST_API_TOKEN, skipping the multi-user credential and subscription
// machinery. Useful for trying the tools from a terminal MCP client.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskbridge/todoist-mcp/internal/config"
	"github.com/taskbridge/todoist-mcp/internal/todoist"
	"github.com/taskbridge/todoist-mcp/internal/tools"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

func main() {
	config.LoadEnv("../../.env")
	logging.Init(os.Getenv("LOG_LEVEL"), false, os.Stderr)

	token := os.Getenv("TODOIST_API_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "TODOIST_API_TOKEN is required for stdio mode")
		os.Exit(1)
	}

	mcpServer := server.NewMCPServer("TodoistMCP", "1.0.0",
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(tools.All(todoist.NewClient(token))...)

	if err := server.ServeStdio(mcpServer); err != nil {
		logging.Error("Stdio", err, "server stopped")
		os.Exit(1)
	}
}
