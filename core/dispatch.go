/*
This file resolves and executes the tool invocations the model emits inside
a turn. The handler set is closed at construction time; unknown names yield
a descriptive textual result so the model can recover conversationally.

Every dispatch emits two audit records: one before execution with the tool
input, one after with the duration and result size. Audit emission is
best-effort and never blocks or fails the dispatch.
*/
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"oddsbot/tools"
)

// ToolInvocation is one tool call emitted by the model, identified by an
// opaque correlation token.
type ToolInvocation struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult pairs a handler's textual output with the invocation token it
// answers.
type ToolResult struct {
	InvocationID string
	Content      string
}

// Auditor records tool invocations. durationMs below zero means the
// duration is not yet known (pre-dispatch record).
type Auditor interface {
	Record(userID, sessionID, toolName string, input map[string]any, durationMs int64)
}

// Dispatcher maps tool names to handlers and executes invocations.
type Dispatcher struct {
	handlers map[string]tools.Handler
	order    []string
	audit    Auditor
	logger   *logrus.Logger
}

// NewDispatcher builds a dispatcher over a closed handler set.
func NewDispatcher(audit Auditor, logger *logrus.Logger, handlers ...tools.Handler) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]tools.Handler, len(handlers)),
		audit:    audit,
		logger:   logger,
	}
	for _, h := range handlers {
		d.handlers[h.Name()] = h
		d.order = append(d.order, h.Name())
	}
	return d
}

// Definitions exposes the handler set as tool definitions for the model, in
// registration order.
func (d *Dispatcher) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		h := d.handlers[name]
		defs = append(defs, ToolDefinition{
			Name:        h.Name(),
			Description: h.Description(),
			InputSchema: h.InputSchema(),
		})
	}
	return defs
}

// Dispatch executes a single invocation and returns its textual result.
// Handler errors are converted to advisory text here; dispatch never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, sctx SessionContext, inv ToolInvocation) ToolResult {
	start := time.Now()

	d.audit.Record(sctx.UserID, sctx.SessionID, inv.Name, inv.Input, -1)

	var content string
	handler, ok := d.handlers[inv.Name]
	if !ok {
		d.logger.WithField("tool", inv.Name).Warn("Tool invocation for unregistered name")
		content = fmt.Sprintf("Tool %q is not implemented.", inv.Name)
	} else {
		result, err := handler.Call(ctx, tools.Request{
			UserID:    sctx.UserID,
			SessionID: sctx.SessionID,
			Input:     inv.Input,
		})
		if err != nil {
			d.logger.WithError(err).WithField("tool", inv.Name).Error("Tool handler failed")
			content = fmt.Sprintf("Tool %q failed: %v. Try web_search as an alternative.", inv.Name, err)
		} else {
			content = result
		}
	}

	durationMs := time.Since(start).Milliseconds()
	d.audit.Record(sctx.UserID, sctx.SessionID, inv.Name+":complete",
		map[string]any{"result_length": len(content)}, durationMs)

	d.logger.WithFields(logrus.Fields{
		"tool":         inv.Name,
		"durationMs":   durationMs,
		"resultLength": len(content),
	}).Info("Tool dispatched")

	return ToolResult{InvocationID: inv.ID, Content: content}
}

// DispatchAll executes the invocations of one turn and returns their results
// in the original emission order. Invocations of the same handler may depend
// on each other's effects (a memory create followed by an edit of the
// created content), so a batch with a repeated handler name runs
// sequentially; only batches where every invocation targets a distinct
// handler dispatch concurrently.
func (d *Dispatcher) DispatchAll(ctx context.Context, sctx SessionContext, invs []ToolInvocation) []ToolResult {
	results := make([]ToolResult, len(invs))

	if hasRepeatedName(invs) {
		for i, inv := range invs {
			results[i] = d.Dispatch(ctx, sctx, inv)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, inv := range invs {
		wg.Add(1)
		go func(i int, inv ToolInvocation) {
			defer wg.Done()
			results[i] = d.Dispatch(ctx, sctx, inv)
		}(i, inv)
	}
	wg.Wait()

	return results
}

func hasRepeatedName(invs []ToolInvocation) bool {
	seen := make(map[string]bool, len(invs))
	for _, inv := range invs {
		if seen[inv.Name] {
			return true
		}
		seen[inv.Name] = true
	}
	return false
}
