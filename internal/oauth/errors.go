package oauth

import "fmt"

// BadRequestError marks a malformed or forged callback: missing parameters
// or an invalid/expired/replayed state. Surfaced as HTTP 400.
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string { return e.Msg }

// UpstreamError marks a non-2xx response from Todoist during the exchange.
// Terminal for the flow; the body is kept for the error page.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Body)
}
