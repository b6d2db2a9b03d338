/*
This file selects the single active behavioral mode for a request. Modes are
layered instruction sets loaded into the system prompt; exactly one is
active at a time.

Decision table, first match wins:
 1. No stored profile            -> onboarding (collect name + preferences)
 2. First message of day, no text -> proactive (morning briefing)
 3. Everything else              -> reactive (respond to the user's query)
*/
package core

import "strings"

// Mode identifies one behavioral instruction layer.
type Mode string

const (
	ModeOnboarding Mode = "onboarding"
	ModeProactive  Mode = "proactive"
	ModeReactive   Mode = "reactive"
)

// ModeDecision carries the selected mode together with a human-readable
// justification for logs.
type ModeDecision struct {
	Mode   Mode
	Reason string
}

// SelectMode evaluates the decision table against the session context.
// Profile absence always dominates; proactive requires both the temporal
// flag and an empty message.
func SelectMode(sctx SessionContext) ModeDecision {
	if !sctx.HasProfile {
		return ModeDecision{
			Mode:   ModeOnboarding,
			Reason: "user has no stored profile - collect name and sports preferences",
		}
	}

	if sctx.FirstMessageOfDay && strings.TrimSpace(sctx.Message) == "" {
		return ModeDecision{
			Mode:   ModeProactive,
			Reason: "first message of the day with no text - send the morning sports briefing",
		}
	}

	return ModeDecision{
		Mode:   ModeReactive,
		Reason: "user with profile and a message - answer with tools as needed",
	}
}
