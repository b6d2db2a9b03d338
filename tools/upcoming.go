package tools

import (
	"context"
)

// UpcomingEventsTool finds scheduled sports events.
type UpcomingEventsTool struct {
	client *SportsClient
}

// NewUpcomingEventsTool creates the upcoming events query handler.
func NewUpcomingEventsTool(client *SportsClient) *UpcomingEventsTool {
	return &UpcomingEventsTool{client: client}
}

func (t *UpcomingEventsTool) Name() string {
	return "search_upcoming_events"
}

func (t *UpcomingEventsTool) Description() string {
	return "Search for scheduled sports events (today, tomorrow, this week). Returns upcoming matches with their odds. " +
		"Use this tool when the user asks about \"today\", \"tomorrow\", \"upcoming\", specific dates or wants to plan future bets."
}

func (t *UpcomingEventsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type": "string",
				"description": "Natural language query. Include the sport, date and/or teams. " +
					"Example: \"next NBA games tomorrow\", \"football today Premier League\"",
			},
		},
		"required": []string{"query"},
	}
}

func (t *UpcomingEventsTool) Call(ctx context.Context, req Request) (string, error) {
	query := stringField(req.Input, "query") + " upcoming scheduled"
	return t.client.Query(ctx, query, req.UserID), nil
}

var _ Handler = (*UpcomingEventsTool)(nil)
