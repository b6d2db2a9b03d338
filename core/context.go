/*
This file enriches the raw webhook payload into the immutable session
context consumed by every downstream component: skill selection, prompt
assembly, the turn loop, and tool dispatch.
*/
package core

import (
	"time"
)

// proactiveCutoffHour is the local hour before which a declared first
// message counts as the first message of the day. A first message arriving
// in the afternoon never triggers the morning briefing.
const proactiveCutoffHour = 12

// SessionContext is the immutable per-request value produced by
// BuildSessionContext. It is created once per request and consumed
// read-only afterwards.
type SessionContext struct {
	UserID        string
	SessionID     string
	ClientID      string
	CorrelationID string
	Message       string
	History       []HistoryTurn
	FirstMessage  bool
	AgentName     string

	// Enriched at build time
	HasProfile        bool
	FirstMessageOfDay bool
	LocalDate         string
	LocalTime         string
}

// BuildSessionContext derives the session context from the payload, the
// profile-existence predicate, and the supplied wall-clock instant. It is a
// pure function: passing the same inputs yields the same context, which
// keeps the time-dependent daily-first-message rule testable.
//
// The daily-first-message flag requires both conditions: the request must
// declare itself the first message of a session AND the local hour in the
// reference timezone must be before noon.
func BuildSessionContext(payload *WebhookRequest, hasProfile bool, now time.Time, config *Config) SessionContext {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	history := make([]HistoryTurn, 0, len(payload.Context))
	for _, turn := range payload.Context {
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		history = append(history, HistoryTurn{Role: role, Content: turn.Content})
	}

	agentName := payload.AgentName
	if agentName == "" {
		agentName = config.AgentName
	}

	return SessionContext{
		UserID:            payload.UserID,
		SessionID:         payload.SessionID,
		ClientID:          payload.ClientID,
		CorrelationID:     payload.CorrelationID,
		Message:           payload.Message,
		History:           history,
		FirstMessage:      payload.FirstMessage,
		AgentName:         agentName,
		HasProfile:        hasProfile,
		FirstMessageOfDay: payload.FirstMessage && local.Hour() < proactiveCutoffHour,
		LocalDate:         local.Format("Monday, January 2, 2006"),
		LocalTime:         local.Format("15:04"),
	}
}
