// ABOUTME: Hook and typed-listener plumbing: transformContext/beforeToolCall/afterToolResult chains
// ABOUTME: plus agent-level input hooks and an "on" event bus with bulk-dispose bookkeeping

package agent

import (
	"context"

	"github.com/pi-agent/runtime/internal/eventbus"
	"github.com/pi-agent/runtime/internal/rtlog"
)

// ToolCallRequest is the (toolCall, tool) pair offered to a beforeToolCall hook.
type ToolCallRequest struct {
	CallID string
	Name   string
	Input  []byte
	Tool   *Tool
}

// ToolCallDecision is a beforeToolCall hook's verdict.
type ToolCallDecision struct {
	// Block, when true, short-circuits execution; Result is used as the
	// tool's result instead of calling Execute.
	Block  bool
	Result *ToolExecResult

	// Rewrite, when non-nil, replaces the call passed to the next hook and
	// ultimately to execution.
	Rewrite *ToolCallRequest
}

// ContinueDecision is the non-blocking beforeToolCall verdict: continue with
// the call unmodified (or with Rewrite applied, if set).
func ContinueDecision(rewrite *ToolCallRequest) ToolCallDecision {
	return ToolCallDecision{Rewrite: rewrite}
}

// TransformContextFn rewrites the message history before it is projected to
// the model. ctx carries the run's cancellation signal.
type TransformContextFn func(ctx context.Context, messages []Message) ([]Message, error)

// BeforeToolCallFn inspects/blocks/rewrites a tool call before it executes.
type BeforeToolCallFn func(ctx context.Context, req ToolCallRequest) (ToolCallDecision, error)

// AfterToolResultFn post-processes a tool's result message.
type AfterToolResultFn func(ctx context.Context, req ToolCallRequest, result ToolResultMessage) (ToolResultMessage, error)

// InputAction is the verdict of an agent-level input hook.
type InputAction string

const (
	InputContinue  InputAction = "continue"
	InputTransform InputAction = "transform"
	InputHandled   InputAction = "handled"
)

// InputDecision is what an InputHookFn returns.
type InputDecision struct {
	Action InputAction
	Text   string
}

// InputHookFn inspects or rewrites text entering Prompt, or handles it
// entirely (suppressing user-message creation and the turn loop).
type InputHookFn func(ctx context.Context, text string) (InputDecision, error)

// disposable is a handle returned by every Hooks.On*/Use* registration
// method; calling it removes exactly that registration.
type disposable func()

// Hooks holds every chain and listener registered on an Agent, plus the
// bookkeeping needed to remove an extension's registrations in bulk.
type Hooks struct {
	transformContext []TransformContextFn
	beforeToolCall   []BeforeToolCallFn
	afterToolResult  []AfterToolResultFn
	inputHooks       []InputHookFn

	listeners map[EventType]*eventbus.Bus[AgentEvent]
	allEvent  *eventbus.Bus[AgentEvent]
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{
		listeners: make(map[EventType]*eventbus.Bus[AgentEvent]),
		allEvent:  eventbus.New[AgentEvent](),
	}
}

// UseTransformContext registers a transformContext stage, evaluated after
// any earlier-registered stages, in registration order.
func (h *Hooks) UseTransformContext(fn TransformContextFn) disposable {
	h.transformContext = append(h.transformContext, fn)
	idx := len(h.transformContext) - 1
	return func() { h.transformContext[idx] = nil }
}

// UseBeforeToolCall registers a beforeToolCall stage.
func (h *Hooks) UseBeforeToolCall(fn BeforeToolCallFn) disposable {
	h.beforeToolCall = append(h.beforeToolCall, fn)
	idx := len(h.beforeToolCall) - 1
	return func() { h.beforeToolCall[idx] = nil }
}

// UseAfterToolResult registers an afterToolResult stage.
func (h *Hooks) UseAfterToolResult(fn AfterToolResultFn) disposable {
	h.afterToolResult = append(h.afterToolResult, fn)
	idx := len(h.afterToolResult) - 1
	return func() { h.afterToolResult[idx] = nil }
}

// UseInputHook registers an agent-level input hook.
func (h *Hooks) UseInputHook(fn InputHookFn) disposable {
	h.inputHooks = append(h.inputHooks, fn)
	idx := len(h.inputHooks) - 1
	return func() { h.inputHooks[idx] = nil }
}

// On registers fn for a specific event type, or for every event when
// evtType is the empty string (mirrors a generic on("event", fn) listener).
func (h *Hooks) On(evtType EventType, fn func(AgentEvent)) disposable {
	if evtType == "" {
		return disposable(h.allEvent.Subscribe(fn))
	}
	bus, ok := h.listeners[evtType]
	if !ok {
		bus = eventbus.New[AgentEvent]()
		h.listeners[evtType] = bus
	}
	return disposable(bus.Subscribe(fn))
}

// emit invokes every matching listener synchronously, in registration
// order, named channels before the catch-all "event" channel.
func (h *Hooks) emit(evt AgentEvent) {
	if bus, ok := h.listeners[evt.Type]; ok {
		bus.Publish(evt)
	}
	h.allEvent.Publish(evt)
}

// runTransformContext runs every registered stage in order, feeding each
// stage's output to the next.
func (h *Hooks) runTransformContext(ctx context.Context, messages []Message) ([]Message, error) {
	current := messages
	for _, fn := range h.transformContext {
		if fn == nil {
			continue
		}
		next, err := fn(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// runBeforeToolCall runs every registered stage. The first Block verdict
// wins and short-circuits remaining stages; a Rewrite verdict replaces the
// request passed to subsequent stages.
func (h *Hooks) runBeforeToolCall(ctx context.Context, req ToolCallRequest) (ToolCallDecision, error) {
	current := req
	for _, fn := range h.beforeToolCall {
		if fn == nil {
			continue
		}
		decision, err := fn(ctx, current)
		if err != nil {
			rtlog.Warn("beforeToolCall hook failed for tool %s, continuing chain: %v", current.Name, err)
			continue
		}
		if decision.Block {
			return decision, nil
		}
		if decision.Rewrite != nil {
			current = *decision.Rewrite
		}
	}
	return ToolCallDecision{Rewrite: &current}, nil
}

// runAfterToolResult runs every registered stage, feeding each stage's
// output to the next.
func (h *Hooks) runAfterToolResult(ctx context.Context, req ToolCallRequest, result ToolResultMessage) ToolResultMessage {
	current := result
	for _, fn := range h.afterToolResult {
		if fn == nil {
			continue
		}
		next, err := fn(ctx, req, current)
		if err != nil {
			rtlog.Warn("afterToolResult hook failed for tool %s, keeping prior result: %v", req.Name, err)
			continue
		}
		current = next
	}
	return current
}

// runInputHooks runs every registered input hook in order. Returns the
// final decision and the possibly-transformed text. A hook that panics with
// a recovered error is logged and skipped; remaining hooks still run.
func (h *Hooks) runInputHooks(ctx context.Context, text string) (decision InputDecision, finalText string) {
	finalText = text
	decision = InputDecision{Action: InputContinue, Text: text}
	for _, fn := range h.inputHooks {
		if fn == nil {
			continue
		}
		d, err := func() (d InputDecision, err error) {
			defer func() {
				if r := recover(); r != nil {
					rtlog.Error("input hook panicked, skipping: %v", r)
				}
			}()
			return fn(ctx, finalText)
		}()
		if err != nil {
			rtlog.Warn("input hook failed, continuing chain: %v", err)
			continue
		}
		switch d.Action {
		case InputTransform:
			finalText = d.Text
			decision = InputDecision{Action: InputContinue, Text: finalText}
		case InputHandled:
			decision = InputDecision{Action: InputHandled, Text: finalText}
			return decision, finalText
		}
	}
	return decision, finalText
}

// Extension bundles a set of hook/listener registrations so they can all be
// removed together via Dispose. An Agent's Use method returns one of these.
type Extension struct {
	disposers []disposable
}

// Dispose removes every registration this extension made.
func (e *Extension) Dispose() {
	for _, d := range e.disposers {
		if d != nil {
			d()
		}
	}
	e.disposers = nil
}
