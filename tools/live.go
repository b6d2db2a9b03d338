package tools

import (
	"context"
)

// LiveEventsTool finds sports events that are being played right now.
type LiveEventsTool struct {
	client *SportsClient
}

// NewLiveEventsTool creates the live events query handler.
func NewLiveEventsTool(client *SportsClient) *LiveEventsTool {
	return &LiveEventsTool{client: client}
}

func (t *LiveEventsTool) Name() string {
	return "search_live_events"
}

func (t *LiveEventsTool) Description() string {
	return "Search for sports events happening RIGHT NOW. Returns live matches with their current odds. " +
		"Use this tool when the user asks about \"live\", \"now\", \"in progress\" or wants to see matches being played."
}

func (t *LiveEventsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type": "string",
				"description": "Natural language query. Include the sport and/or teams if known from the user's profile. " +
					"Example: \"NBA games live now\", \"European football live\"",
			},
		},
		"required": []string{"query"},
	}
}

func (t *LiveEventsTool) Call(ctx context.Context, req Request) (string, error) {
	query := stringField(req.Input, "query") + " live now"
	return t.client.Query(ctx, query, req.UserID), nil
}

var _ Handler = (*LiveEventsTool)(nil)
