/*
This file defines the wire contract between the upstream io-server and
Oddsbot: the inbound webhook payload and the two canonical response shapes
returned for every request.

Key type categories:
- Webhook API types (WebhookRequest, HistoryTurn)
- Canonical response types (Response, ResponseData, SportEvent)
*/
package core

import (
	"encoding/json"
	"strings"
)

// WebhookRequest represents an incoming message from the upstream caller.
// The message may be empty (proactive briefings are triggered without text);
// all identity fields are required.
type WebhookRequest struct {
	Message       string        `json:"message"`
	UserID        string        `json:"userId"`
	SessionID     string        `json:"sessionId"`
	ClientID      string        `json:"clientId"`
	CorrelationID string        `json:"correlationId"`
	Context       []HistoryTurn `json:"context,omitempty"`
	FirstMessage  bool          `json:"firstMessage,omitempty"`
	AgentName     string        `json:"agentName,omitempty"`
}

// HistoryTurn is a single prior exchange supplied by the caller. Roles other
// than "assistant" are treated as user turns during enrichment.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate checks the required identity fields and returns the name of the
// first missing one, or an empty string when the request is well formed.
func (r *WebhookRequest) Validate() string {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return "userId"
	case strings.TrimSpace(r.SessionID) == "":
		return "sessionId"
	case strings.TrimSpace(r.ClientID) == "":
		return "clientId"
	case strings.TrimSpace(r.CorrelationID) == "":
		return "correlationId"
	}
	return ""
}

// Response type discriminants. These are the only two values the upstream
// caller accepts.
const (
	ResponseTypeText = "text"
	ResponseTypeJSON = "json"
)

// Response is the canonical wire response: a tagged union discriminated by
// Type. "text" carries only a message; "json" additionally carries event
// lists and an optional status.
type Response struct {
	Type string       `json:"type"`
	Data ResponseData `json:"data"`
}

// ResponseData is the payload of a canonical response. Event lists and
// status are only populated for the "json" variant.
type ResponseData struct {
	Message        string       `json:"message"`
	LiveEvents     []SportEvent `json:"liveEvents,omitempty"`
	UpcomingEvents []SportEvent `json:"upcomingEvents,omitempty"`
	Status         string       `json:"status,omitempty"`
}

// SportEvent is one event entry inside a "json" response.
type SportEvent struct {
	EventID     string `json:"eventId"`
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	Sport       string `json:"sport"`
	League      string `json:"league"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// TextResponse builds a plain-text canonical response.
func TextResponse(message string) Response {
	return Response{
		Type: ResponseTypeText,
		Data: ResponseData{Message: strings.TrimSpace(message)},
	}
}

// Serialize renders the response in its wire form.
func (r Response) Serialize() string {
	out, err := json.Marshal(r)
	if err != nil {
		// Marshaling a Response cannot realistically fail; keep the
		// fail-closed contract anyway.
		return `{"type":"text","data":{"message":""}}`
	}
	return string(out)
}
