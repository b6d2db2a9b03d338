package core

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMessageFixture(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func TestParseModelTurnText(t *testing.T) {
	msg := parseMessageFixture(t, `{
		"id": "msg_1", "type": "message", "role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "Hola Juan!"}],
		"stop_reason": "end_turn"
	}`)

	turn := parseModelTurn(msg, quietLogger())

	assert.Equal(t, SignalComplete, turn.Signal)
	assert.Equal(t, "end_turn", turn.StopReason)
	require.Len(t, turn.Segments, 1)
	assert.Equal(t, SegmentText, turn.Segments[0].Kind)
	assert.Equal(t, "Hola Juan!", turn.Segments[0].Text)
}

func TestParseModelTurnToolUse(t *testing.T) {
	msg := parseMessageFixture(t, `{
		"id": "msg_2", "type": "message", "role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [
			{"type": "text", "text": "Let me check."},
			{"type": "tool_use", "id": "toolu_1", "name": "search_live_events",
			 "input": {"query": "liga betplay"}}
		],
		"stop_reason": "tool_use"
	}`)

	turn := parseModelTurn(msg, quietLogger())

	assert.Equal(t, SignalToolUse, turn.Signal)
	require.Len(t, turn.Segments, 2)
	assert.Equal(t, SegmentText, turn.Segments[0].Kind)

	seg := turn.Segments[1]
	assert.Equal(t, SegmentToolUse, seg.Kind)
	assert.Equal(t, "toolu_1", seg.ID)
	assert.Equal(t, "search_live_events", seg.Name)
	assert.Equal(t, map[string]any{"query": "liga betplay"}, seg.Input)
}

func TestParseModelTurnProviderBlocks(t *testing.T) {
	msg := parseMessageFixture(t, `{
		"id": "msg_3", "type": "message", "role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [
			{"type": "server_tool_use", "id": "srvtoolu_1", "name": "web_search",
			 "input": {"query": "injury report"}},
			{"type": "web_search_tool_result", "tool_use_id": "srvtoolu_1", "content": []}
		],
		"stop_reason": "tool_use"
	}`)

	turn := parseModelTurn(msg, quietLogger())

	assert.Equal(t, SignalToolUse, turn.Signal)
	require.Len(t, turn.Segments, 2)
	assert.Equal(t, SegmentProvider, turn.Segments[0].Kind)
	assert.Equal(t, "web_search", turn.Segments[0].Name)
	assert.Equal(t, SegmentProvider, turn.Segments[1].Kind)

	// Provider segments are never dispatched locally.
	assert.Empty(t, collectInvocations(turn.Segments))
}

func TestParseModelTurnStopReasons(t *testing.T) {
	tests := []struct {
		stopReason string
		want       TurnSignal
	}{
		{"end_turn", SignalComplete},
		{"pause_turn", SignalPaused},
		{"tool_use", SignalToolUse},
		{"max_tokens", SignalUnknown},
		{"refusal", SignalUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.stopReason, func(t *testing.T) {
			msg := parseMessageFixture(t, `{
				"id": "msg_4", "type": "message", "role": "assistant",
				"model": "claude-sonnet-4-5",
				"content": [],
				"stop_reason": "`+tt.stopReason+`"
			}`)
			assert.Equal(t, tt.want, parseModelTurn(msg, quietLogger()).Signal)
		})
	}
}

func TestBuildInputSchema(t *testing.T) {
	schema := buildInputSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	})

	props, ok := schema.Properties.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Equal(t, []string{"query"}, schema.ExtraFields["required"])
}
