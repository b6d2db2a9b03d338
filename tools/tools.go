/*
Package tools contains the locally dispatched tool handlers available to the
agent: the memory command handler backed by the profile store, and the two
sports-data query handlers.

Handlers convert their own failures into advisory text for the model rather
than returning errors, so a broken collaborator degrades to a conversational
recovery instead of aborting the turn loop.
*/
package tools

import "context"

// Request carries the session identity alongside the structured tool input.
type Request struct {
	UserID    string
	SessionID string
	Input     map[string]any
}

// Handler is one named capability the agent can invoke.
type Handler interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Call(ctx context.Context, req Request) (string, error)
}

// stringField reads an optional string value from a tool input map.
func stringField(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}
