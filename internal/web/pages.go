// Package web renders the small HTML surface: the landing/setup page, the
// post-OAuth success page carrying the personal integration URL, the
// checkout-cancelled page, and the generic error page.
package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
           max-width: 640px; margin: 48px auto; padding: 0 24px; color: #202020; }
    h1 { color: #e44332; }
    a.button { display: inline-block; background: #e44332; color: #fff; padding: 12px 24px;
               border-radius: 6px; text-decoration: none; margin-top: 16px; }
    .url-box { background: #f5f5f5; border: 1px solid #ddd; border-radius: 6px;
               padding: 12px; font-family: monospace; word-break: break-all; margin: 16px 0; }
    .warning { background: #fff8e1; border-left: 4px solid #f9a825; padding: 12px; margin: 16px 0; }
    ul { line-height: 1.8; }
  </style>
</head>
<body>
  <h1>{{.Heading}}</h1>
  {{.Body}}
</body>
</html>
`))

type page struct {
	Title   string
	Heading string
	Body    template.HTML
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		logging.Error("Web", err, "rendering %s page", p.Title)
	}
}

// Landing renders the setup page inviting the visitor to start the OAuth
// flow.
func Landing(w http.ResponseWriter) {
	render(w, http.StatusOK, page{
		Title:   "Connect Todoist to Claude - MCP Server Setup",
		Heading: "Connect Todoist to Claude",
		Body: template.HTML(`
  <p>Connect your Todoist account to create a personalized MCP server URL for Claude.</p>
  <p><strong>What happens next:</strong></p>
  <ul>
    <li>You authorize this server with Todoist</li>
    <li>You get a personal integration URL</li>
    <li>You add that URL to Claude as a custom integration</li>
  </ul>
  <a class="button" href="/auth">Connect with Todoist</a>`),
	})
}

var successBody = template.Must(template.New("success").Parse(`
  <p>Your Todoist account is connected.</p>
  <p><strong>Your Personal MCP Integration URL</strong></p>
  <div class="url-box">{{.IntegrationURL}}</div>
  <div class="warning">Treat this URL like a password. Anyone who has it can manage your Todoist data.</div>
  <p><strong>Next steps:</strong></p>
  <ul>
    <li>Open Claude's integration settings</li>
    <li>Add a custom integration with the URL above</li>
    <li>Start managing tasks, projects, sections, labels and comments from Claude</li>
  </ul>`))

// Success renders the personalized page shown after a completed OAuth flow.
func Success(w http.ResponseWriter, baseURL, userID string) {
	var buf bytes.Buffer
	if err := successBody.Execute(&buf, map[string]string{
		"IntegrationURL": baseURL + "/sse?user_id=" + userID,
	}); err != nil {
		logging.Error("Web", err, "rendering success body")
		Error(w, http.StatusInternalServerError, "Something went wrong", "Could not render the success page.")
		return
	}

	render(w, http.StatusOK, page{
		Title:   "Success! Your Todoist-Claude Integration is Ready",
		Heading: "🎉 Your Integration is Ready!",
		Body:    template.HTML(buf.String()),
	})
}

// Cancelled renders the page shown when a checkout session is abandoned.
func Cancelled(w http.ResponseWriter) {
	render(w, http.StatusOK, page{
		Title:   "Checkout Cancelled",
		Heading: "Checkout Cancelled",
		Body: template.HTML(`
  <p>No charge was made. You can subscribe at any time to unlock the Todoist tools.</p>
  <a class="button" href="/">Back to setup</a>`),
	})
}

// Error renders a human-readable failure page with the given status.
func Error(w http.ResponseWriter, status int, heading, message string) {
	escaped := template.HTMLEscapeString(message)
	render(w, status, page{
		Title:   "Todoist MCP Server - Error",
		Heading: heading,
		Body:    template.HTML("<p>" + escaped + `</p><a class="button" href="/">Try again</a>`),
	})
}
