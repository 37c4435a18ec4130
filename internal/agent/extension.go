// ABOUTME: Extension factory contract: re-exposes the façade's hook/listener registration
// ABOUTME: surface plus sendUserMessage, and returns a disposer that undoes everything at once

package agent

import "context"

// ExtensionAPI is handed to an extension factory. Every registration method
// records its disposer on the owning Extension so Use's caller can tear the
// whole extension down with one Dispose call.
type ExtensionAPI struct {
	agent *Agent
	ext   *Extension
}

// UseTransformContext registers a transformContext stage for this extension.
func (a *ExtensionAPI) UseTransformContext(fn TransformContextFn) {
	a.ext.disposers = append(a.ext.disposers, a.agent.hooks.UseTransformContext(fn))
}

// UseBeforeToolCall registers a beforeToolCall stage for this extension.
func (a *ExtensionAPI) UseBeforeToolCall(fn BeforeToolCallFn) {
	a.ext.disposers = append(a.ext.disposers, a.agent.hooks.UseBeforeToolCall(fn))
}

// UseAfterToolResult registers an afterToolResult stage for this extension.
func (a *ExtensionAPI) UseAfterToolResult(fn AfterToolResultFn) {
	a.ext.disposers = append(a.ext.disposers, a.agent.hooks.UseAfterToolResult(fn))
}

// UseInputHook registers an agent-level input hook for this extension.
func (a *ExtensionAPI) UseInputHook(fn InputHookFn) {
	a.ext.disposers = append(a.ext.disposers, a.agent.hooks.UseInputHook(fn))
}

// On subscribes fn to evtType (or every event, if evtType is "") for this extension.
func (a *ExtensionAPI) On(evtType EventType, fn func(AgentEvent)) {
	a.ext.disposers = append(a.ext.disposers, a.agent.hooks.On(evtType, fn))
}

// DeliverMode selects which queue SendUserMessage enqueues onto.
type DeliverMode string

const (
	DeliverFollowUp DeliverMode = "follow-up"
	DeliverSteer    DeliverMode = "steer"
)

// SendUserMessage enqueues text as a new user message, either as a
// follow-up (drained once the current run reaches its terminal stop
// reason) or as a steering message (drained between tool calls mid-run).
func (a *ExtensionAPI) SendUserMessage(text string, mode DeliverMode) {
	msg := NewUserMessage(newMessageID(), text)
	switch mode {
	case DeliverSteer:
		a.agent.steering.Push(msg)
	default:
		a.agent.followUp.Push(msg)
	}
}

// ExtensionFactory builds an extension against the given API. ctx is the
// agent's lifetime context, not a single run's context.
type ExtensionFactory func(ctx context.Context, api *ExtensionAPI)

// use runs factory with a fresh ExtensionAPI bound to agent, returning the
// Extension whose Dispose removes every registration the factory made.
func use(agent *Agent, ctx context.Context, factory ExtensionFactory) *Extension {
	ext := &Extension{}
	api := &ExtensionAPI{agent: agent, ext: ext}
	factory(ctx, api)
	return ext
}
