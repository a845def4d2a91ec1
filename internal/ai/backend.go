package ai

import "context"

// Request is a single completion request to an LLM backend.
type Request struct {
	System     string         // system message framing the task
	Prompt     string         // user message with the actual content
	SchemaName string         // name for the response schema
	Schema     map[string]any // JSON Schema the response must conform to
}

// Backend abstracts an LLM completion API. Implementations enforce the
// request schema server-side where the API supports it; otherwise the
// prompt itself must pin down the response shape.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}
