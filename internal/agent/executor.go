// ABOUTME: Tool executor: runs an assistant message's tool calls sequentially, in order
// ABOUTME: Steering messages interrupt after a call completes; skipped calls still get isError results

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// toolExecutor runs the tool calls of one assistant message against a
// Registry, honoring beforeToolCall/afterToolResult hooks and steering
// interruption. One toolExecutor serves every assistant message of a run.
type toolExecutor struct {
	registry *Registry
	hooks    *Hooks
	emit     func(AgentEvent)
}

func newToolExecutor(registry *Registry, hooks *Hooks, emit func(AgentEvent)) *toolExecutor {
	return &toolExecutor{registry: registry, hooks: hooks, emit: emit}
}

// drainSteering returns any steering messages queued since the last call to
// it, or nil if none are queued. The executor polls it once a tool call has
// finished, never before or during one.
type drainSteering func() []UserMessage

// Execute runs every tool-call part in calls, in order. After each call
// completes, drainSteering is polled; a non-empty result marks the
// remaining calls as skipped (each still gets a synthetic isError
// tool-result so the assistant message's tool-call parts remain 1:1
// paired) and is returned as the steering-after-tools buffer for the turn
// loop to inject as the next turn's pending messages.
func (e *toolExecutor) Execute(ctx context.Context, calls []Part, drain drainSteering) ([]ToolResultMessage, []UserMessage) {
	results := make([]ToolResultMessage, 0, len(calls))
	var steeringBuffer []UserMessage
	interrupted := false

	for _, call := range calls {
		if interrupted {
			results = append(results, e.skippedResult(call))
			continue
		}

		results = append(results, e.executeOne(ctx, call))

		if drain != nil {
			if buf := drain(); len(buf) > 0 {
				steeringBuffer = buf
				interrupted = true
			}
		}
	}

	return results, steeringBuffer
}

func (e *toolExecutor) skippedResult(call Part) ToolResultMessage {
	e.emit(AgentEvent{Type: EventToolExecStart, ToolCallID: call.ToolCallID, ToolName: call.ToolName})
	res := ToolResultMessage{
		ID:         newMessageID(),
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Content:    "Skipped due to queued user message.",
		IsError:    true,
		CreatedAt:  time.Now(),
	}
	e.emit(AgentEvent{
		Type:       EventToolExecEnd,
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Result:     &res,
	})
	return res
}

func (e *toolExecutor) executeOne(ctx context.Context, call Part) ToolResultMessage {
	e.emit(AgentEvent{Type: EventToolExecStart, ToolCallID: call.ToolCallID, ToolName: call.ToolName})

	req := ToolCallRequest{
		CallID: call.ToolCallID,
		Name:   call.ToolName,
		Input:  call.ToolInput,
		Tool:   e.registry.Get(call.ToolName),
	}

	decision, err := e.hooks.runBeforeToolCall(ctx, req)
	if err != nil {
		return e.finalize(ctx, req, ToolResultMessage{
			ID:         newMessageID(),
			ToolCallID: call.ToolCallID,
			ToolName:   req.Name,
			Content:    fmt.Sprintf("beforeToolCall hook error: %v", err),
			IsError:    true,
			CreatedAt:  time.Now(),
		})
	}
	if decision.Block {
		var result ToolResultMessage
		if decision.Result != nil {
			result = ToolResultMessage{
				ID:         newMessageID(),
				ToolCallID: call.ToolCallID,
				ToolName:   req.Name,
				Content:    decision.Result.Content,
				Details:    decision.Result.Details,
				IsError:    decision.Result.IsError,
				Images:     decision.Result.Images,
				CreatedAt:  time.Now(),
			}
		} else {
			result = ToolResultMessage{
				ID:         newMessageID(),
				ToolCallID: call.ToolCallID,
				ToolName:   req.Name,
				Content:    "tool call blocked by hook",
				IsError:    true,
				CreatedAt:  time.Now(),
			}
		}
		return e.finalize(ctx, req, result)
	}
	if decision.Rewrite != nil {
		req = *decision.Rewrite
	}

	tool := e.registry.Get(req.Name)
	if tool == nil {
		return e.finalize(ctx, req, ToolResultMessage{
			ID:         newMessageID(),
			ToolCallID: req.CallID,
			ToolName:   req.Name,
			Content:    fmt.Sprintf("Tool %s not found", req.Name),
			IsError:    true,
			CreatedAt:  time.Now(),
		})
	}

	if err := e.registry.Validate(req.Name, req.Input); err != nil {
		return e.finalize(ctx, req, ToolResultMessage{
			ID:         newMessageID(),
			ToolCallID: req.CallID,
			ToolName:   req.Name,
			Content:    err.Error(),
			IsError:    true,
			CreatedAt:  time.Now(),
		})
	}

	onUpdate := func(partial string) {
		e.emit(AgentEvent{
			Type:       EventToolExecUpdate,
			ToolCallID: req.CallID,
			ToolName:   req.Name,
			Delta:      partial,
		})
	}

	start := time.Now()
	out, execErr := tool.Execute(ctx, req.CallID, json.RawMessage(req.Input), onUpdate)
	out.Duration = time.Since(start)

	var result ToolResultMessage
	if execErr != nil {
		result = ToolResultMessage{
			ID:         newMessageID(),
			ToolCallID: req.CallID,
			ToolName:   req.Name,
			Content:    execErr.Error(),
			IsError:    true,
			CreatedAt:  time.Now(),
		}
	} else {
		result = ToolResultMessage{
			ID:         newMessageID(),
			ToolCallID: req.CallID,
			ToolName:   req.Name,
			Content:    out.Content,
			Details:    out.Details,
			IsError:    out.IsError,
			Images:     out.Images,
			CreatedAt:  time.Now(),
		}
	}

	return e.finalize(ctx, req, result)
}

func (e *toolExecutor) finalize(ctx context.Context, req ToolCallRequest, result ToolResultMessage) ToolResultMessage {
	final := e.hooks.runAfterToolResult(ctx, req, result)
	e.emit(AgentEvent{
		Type:       EventToolExecEnd,
		ToolCallID: req.CallID,
		ToolName:   req.Name,
		Result:     &final,
	})
	return final
}
