/*
This file wraps the Anthropic SDK behind the ModelClient interface used by
the turn loop. Each provider response is reduced to a closed set of segment
kinds and a single termination signal so the loop's transition logic stays
exhaustive: free-form provider blocks never reach the loop.
*/
package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// webSearchMaxUses caps provider-executed web searches per request.
const webSearchMaxUses = 5

// SegmentKind classifies one content segment of a model turn.
type SegmentKind string

const (
	// SegmentText is plain output text.
	SegmentText SegmentKind = "text"
	// SegmentToolUse is a tool invocation that must be dispatched locally.
	SegmentToolUse SegmentKind = "tool_use"
	// SegmentProvider covers provider-executed capabilities (server-side
	// tool use and their result blocks). They require no local dispatch.
	SegmentProvider SegmentKind = "provider"
)

// Segment is one content segment of a model turn.
type Segment struct {
	Kind  SegmentKind
	Text  string         // populated for SegmentText
	ID    string         // correlation token, populated for SegmentToolUse
	Name  string         // tool name, populated for SegmentToolUse and SegmentProvider
	Input map[string]any // structured input, populated for SegmentToolUse
}

// TurnSignal is the model's per-turn termination signal.
type TurnSignal int

const (
	// SignalComplete means the model finished naturally.
	SignalComplete TurnSignal = iota
	// SignalPaused means the provider is still working on a long-running
	// built-in capability; the transcript should be resent unchanged.
	SignalPaused
	// SignalToolUse means the turn contains tool invocations to dispatch.
	SignalToolUse
	// SignalUnknown covers any other stop reason.
	SignalUnknown
)

// ModelTurn is one parsed provider response. Raw preserves the exact
// assistant turn for transcript replay, including provider-executed blocks
// the loop itself ignores.
type ModelTurn struct {
	Signal     TurnSignal
	StopReason string
	Segments   []Segment
	Raw        anthropic.MessageParam
}

// ToolDefinition describes a locally dispatched tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ModelClient is the call contract with the generative model. Implemented
// by AnthropicModel in production and by fakes in tests.
type ModelClient interface {
	Request(ctx context.Context, system string, transcript []anthropic.MessageParam) (*ModelTurn, error)
}

// AnthropicModel calls the Anthropic Messages API with a fixed tool surface:
// the locally dispatched tools plus the provider-executed web search.
type AnthropicModel struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tools     []anthropic.ToolUnionParam
	logger    *logrus.Logger
}

// NewAnthropicModel builds the production model client.
func NewAnthropicModel(config *Config, definitions []ToolDefinition, logger *logrus.Logger) *AnthropicModel {
	client := anthropic.NewClient(option.WithAPIKey(config.AnthropicAPIKey))

	tools := make([]anthropic.ToolUnionParam, 0, len(definitions)+1)
	for _, def := range definitions {
		tool := anthropic.ToolUnionParamOfTool(buildInputSchema(def.InputSchema), def.Name)
		tool.OfTool.Description = anthropic.String(def.Description)
		tools = append(tools, tool)
	}

	// Web search is provider-executed: Anthropic resolves it server-side
	// and its blocks come back as provider segments.
	tools = append(tools, anthropic.ToolUnionParam{
		OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
			MaxUses: anthropic.Int(webSearchMaxUses),
		},
	})

	return &AnthropicModel{
		client:    client,
		model:     anthropic.Model(config.Model),
		maxTokens: int64(config.MaxTokens),
		tools:     tools,
		logger:    logger,
	}
}

// Request performs one model call and parses the response into a ModelTurn.
func (m *AnthropicModel) Request(ctx context.Context, system string, transcript []anthropic.MessageParam) (*ModelTurn, error) {
	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		Messages:  transcript,
		Tools:     m.tools,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"stopReason": msg.StopReason,
		"blocks":     len(msg.Content),
	}).Debug("Model response received")

	return parseModelTurn(msg, m.logger), nil
}

func parseModelTurn(msg *anthropic.Message, logger *logrus.Logger) *ModelTurn {
	turn := &ModelTurn{
		StopReason: string(msg.StopReason),
		Raw:        msg.ToParam(),
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			turn.Segments = append(turn.Segments, Segment{Kind: SegmentText, Text: b.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(b.Input, &input); err != nil {
				logger.WithError(err).WithField("tool", b.Name).Warn("Failed to parse tool input, using empty input")
				input = map[string]any{}
			}
			turn.Segments = append(turn.Segments, Segment{
				Kind:  SegmentToolUse,
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		case anthropic.ServerToolUseBlock:
			turn.Segments = append(turn.Segments, Segment{Kind: SegmentProvider, Name: string(b.Name)})
		case anthropic.WebSearchToolResultBlock:
			turn.Segments = append(turn.Segments, Segment{Kind: SegmentProvider, Name: "web_search_result"})
		}
	}

	switch msg.StopReason {
	case anthropic.StopReasonEndTurn:
		turn.Signal = SignalComplete
	case anthropic.StopReasonPauseTurn:
		turn.Signal = SignalPaused
	case anthropic.StopReasonToolUse:
		turn.Signal = SignalToolUse
	default:
		turn.Signal = SignalUnknown
	}

	return turn
}

// buildInputSchema converts a tool's schema map to the SDK's schema param.
func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	result := anthropic.ToolInputSchemaParam{}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = props
	}

	if req, ok := schema["required"]; ok {
		result.ExtraFields = map[string]interface{}{
			"required": req,
		}
	}

	return result
}
