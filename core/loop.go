/*
This file drives the agentic turn loop: it interleaves model calls with tool
dispatch under a fixed turn budget and classifies how the exchange ended.

The loop is fully sequential within one request. Its transcript is
append-only: every model turn is appended before the loop continues or
terminates, and every dispatched invocation yields exactly one result
appended back as a single user-origin turn, in emission order.

Terminal states never escape as errors. Exhausted and Failed yield empty
raw output, which the normalizer turns into the fixed apology response.
*/
package core

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"
)

// LoopState is the turn loop's state. Requesting and ToolPending are
// transient; the other three are terminal.
type LoopState string

const (
	StateRequesting  LoopState = "requesting"
	StateToolPending LoopState = "tool_pending"
	StateDone        LoopState = "done"
	StateExhausted   LoopState = "exhausted"
	StateFailed      LoopState = "failed"
)

// proactivePlaceholder replaces an empty inbound message so the transcript
// always starts with a non-empty user turn.
const proactivePlaceholder = "(proactive mode - no user message)"

// AgentResult is the outcome of one full loop run.
type AgentResult struct {
	Output    string
	State     LoopState
	ToolCalls int
	Decision  ModeDecision
	Duration  time.Duration
}

// Runner owns the turn loop and its collaborators.
type Runner struct {
	model      ModelClient
	dispatcher *Dispatcher
	prompts    *PromptComposer
	config     *Config
	logger     *logrus.Logger
}

// NewRunner wires the loop to its model client, dispatcher and composer.
func NewRunner(model ModelClient, dispatcher *Dispatcher, prompts *PromptComposer, config *Config, logger *logrus.Logger) *Runner {
	return &Runner{
		model:      model,
		dispatcher: dispatcher,
		prompts:    prompts,
		config:     config,
		logger:     logger,
	}
}

// Run executes the bounded exchange for one request. It always returns a
// result; internal failures surface as StateFailed with empty output.
func (r *Runner) Run(ctx context.Context, sctx SessionContext) AgentResult {
	start := time.Now()

	decision := SelectMode(sctx)
	runLogger := r.logger.WithFields(logrus.Fields{
		"userId":        sctx.UserID,
		"correlationId": sctx.CorrelationID,
		"mode":          decision.Mode,
	})
	runLogger.WithField("reason", decision.Reason).Info("Mode selected")

	system := r.prompts.Assemble(sctx, decision)

	userMessage := strings.TrimSpace(sctx.Message)
	if userMessage == "" {
		userMessage = proactivePlaceholder
	}
	transcript := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
	}

	result := AgentResult{State: StateRequesting, Decision: decision}

	for turn := 0; turn < r.config.MaxTurns; turn++ {
		if ctx.Err() != nil {
			runLogger.WithError(ctx.Err()).Warn("Request context cancelled, stopping loop")
			result.State = StateFailed
			break
		}

		runLogger.WithFields(logrus.Fields{"turn": turn + 1, "maxTurns": r.config.MaxTurns}).Debug("Requesting model turn")

		modelTurn, err := r.model.Request(ctx, system, transcript)
		if err != nil {
			runLogger.WithError(err).Error("Model call failed")
			result.State = StateFailed
			break
		}

		// The model-origin turn is always appended, even when the loop is
		// about to terminate: provider-executed blocks must stay in the
		// transcript for multi-turn search context.
		transcript = append(transcript, modelTurn.Raw)

		switch modelTurn.Signal {
		case SignalComplete:
			result.Output = collectText(modelTurn.Segments)
			result.State = StateDone
			runLogger.WithFields(logrus.Fields{
				"turn":         turn + 1,
				"outputLength": len(result.Output),
			}).Info("Loop completed naturally")

		case SignalPaused:
			// The provider is still resolving a long-running built-in
			// capability. Resend the transcript unchanged; idempotent
			// resumption is part of the provider's documented contract.
			runLogger.WithField("turn", turn+1).Debug("Provider paused, reissuing request")
			continue

		case SignalToolUse:
			result.State = StateToolPending
			invocations := collectInvocations(modelTurn.Segments)
			if len(invocations) == 0 {
				// Only provider-executed segments in this turn; nothing to
				// dispatch locally.
				result.State = StateRequesting
				continue
			}

			result.ToolCalls += len(invocations)
			toolResults := r.dispatcher.DispatchAll(ctx, sctx, invocations)

			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(toolResults))
			for _, tr := range toolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.InvocationID, tr.Content, false))
			}
			transcript = append(transcript, anthropic.NewUserMessage(blocks...))
			result.State = StateRequesting
			continue

		default:
			runLogger.WithField("stopReason", modelTurn.StopReason).Warn("Unexpected termination signal")
			result.State = StateFailed
		}

		break
	}

	if result.State == StateRequesting || result.State == StateToolPending {
		runLogger.WithField("maxTurns", r.config.MaxTurns).Warn("Turn budget exhausted without completion")
		result.State = StateExhausted
	}

	result.Duration = time.Since(start)
	return result
}

// collectText concatenates the plain-text segments of a turn in emission
// order, skipping tool invocations and provider-executed segments.
func collectText(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// collectInvocations extracts the locally dispatched tool invocations of a
// turn, preserving emission order. Provider-executed segments are resolved
// by the provider itself and never dispatched.
func collectInvocations(segments []Segment) []ToolInvocation {
	var invs []ToolInvocation
	for _, seg := range segments {
		if seg.Kind == SegmentToolUse {
			invs = append(invs, ToolInvocation{ID: seg.ID, Name: seg.Name, Input: seg.Input})
		}
	}
	return invs
}
