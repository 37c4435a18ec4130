// ABOUTME: Adapts internal/hooks' regex-matched subprocess engine into beforeToolCall/afterToolResult
// ABOUTME: Lets a project's .pi-agent settings run shell commands around tool calls without Go code

package cmdhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pi-agent/runtime/internal/agent"
	"github.com/pi-agent/runtime/internal/hooks"
	"github.com/pi-agent/runtime/internal/runtimeconfig"
)

// Bridge wraps a hooks.Engine so it can be registered as the agent's
// beforeToolCall and afterToolResult hook stages.
type Bridge struct {
	engine *hooks.Engine
}

// New compiles defs (from Settings.Hooks) into a Bridge. A nil/empty defs
// map produces a Bridge whose hooks are all no-ops.
func New(defs map[string][]runtimeconfig.HookDef) (*Bridge, error) {
	engine, err := hooks.NewEngine(defs)
	if err != nil {
		return nil, fmt.Errorf("compiling command hooks: %w", err)
	}
	return &Bridge{engine: engine}, nil
}

// BeforeToolCall runs the PreToolUse hooks for req.Name. A hook reporting
// Blocked=true blocks the call with its message as the tool result.
func (b *Bridge) BeforeToolCall(ctx context.Context, req agent.ToolCallRequest) (agent.ToolCallDecision, error) {
	var args map[string]any
	if len(req.Input) > 0 {
		_ = json.Unmarshal(req.Input, &args)
	}

	out, err := b.engine.Fire(ctx, hooks.HookInput{
		Event: hooks.PreToolUse,
		Tool:  req.Name,
		Args:  args,
	})
	if err != nil {
		return agent.ToolCallDecision{}, err
	}
	if out.Blocked {
		return agent.ToolCallDecision{
			Block: true,
			Result: &agent.ToolExecResult{
				Content: out.Message,
				IsError: true,
			},
		}, nil
	}
	return agent.ContinueDecision(nil), nil
}

// AfterToolResult runs the PostToolUse hooks for req.Name. Command hooks at
// this stage cannot rewrite the result's content (PostToolUse is
// notification-only); a Blocked report is surfaced by replacing the result
// with an error.
func (b *Bridge) AfterToolResult(ctx context.Context, req agent.ToolCallRequest, result agent.ToolResultMessage) (agent.ToolResultMessage, error) {
	var args map[string]any
	if len(req.Input) > 0 {
		_ = json.Unmarshal(req.Input, &args)
	}

	out, err := b.engine.Fire(ctx, hooks.HookInput{
		Event: hooks.PostToolUse,
		Tool:  req.Name,
		Args:  args,
	})
	if err != nil {
		return result, err
	}
	if out.Blocked {
		result.IsError = true
		result.Content = out.Message
	}
	return result, nil
}

// Register installs the bridge's stages on agent a as beforeToolCall and
// afterToolResult hooks, and returns a disposer removing both.
func Register(a *agent.Agent, b *Bridge) func() {
	disposeBefore := a.UseBeforeToolCall(b.BeforeToolCall)
	disposeAfter := a.UseAfterToolResult(b.AfterToolResult)
	return func() {
		disposeBefore()
		disposeAfter()
	}
}
