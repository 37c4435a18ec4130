// ABOUTME: Agent façade: owns conversation state, queues, hooks, and tool registry
// ABOUTME: Exposes Prompt/Continue/Abort/Steer/FollowUp/Use/On; one run at a time

package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/pi-agent/runtime/pkg/ai"
)

// ErrNoMessages is returned by Continue when there is no conversation
// history to continue from.
var ErrNoMessages = errors.New("agent: continue with no messages")

// ErrCannotContinueFromAssistant is returned by Continue when the
// conversation's last message is already an assistant message -- there is
// no pending user/tool-result turn for the model to respond to.
var ErrCannotContinueFromAssistant = errors.New("Cannot continue from message role: assistant")

// ErrAlreadyRunning is returned by Prompt/Continue when a run is already
// in flight; the façade allows exactly one concurrent run.
var ErrAlreadyRunning = errors.New("agent: a run is already in progress")

// Agent is the single-conversation runtime façade described by the turn
// loop, tool executor, and hook plumbing it composes.
type Agent struct {
	mu sync.Mutex

	provider      ai.ApiProvider
	model         *ai.Model
	systemPrompt  string
	thinkingLevel ai.ThinkingLevel
	temperature   float64
	maxTokens     int

	registry        *Registry
	activeToolNames []string

	hooks    *Hooks
	steering *MessageQueue
	followUp *MessageQueue

	history []Message
	state   RunState
	cancel  context.CancelFunc
	idleCh  chan struct{}
}

// New creates an Agent wired to the given provider and model. A queue mode
// other than ModeAll defaults both queues to one-at-a-time.
func New(provider ai.ApiProvider, model *ai.Model, steeringMode, followUpMode QueueMode) *Agent {
	a := &Agent{
		provider:    provider,
		model:       model,
		registry:    NewRegistry(),
		hooks:       NewHooks(),
		steering:    NewMessageQueue(steeringMode),
		followUp:    NewMessageQueue(followUpMode),
		temperature: 1.0,
		idleCh:      make(chan struct{}),
	}
	close(a.idleCh) // starts idle
	return a
}

// SetSystemPrompt sets the system prompt sent with every model call.
func (a *Agent) SetSystemPrompt(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.systemPrompt = s
}

// SetModel swaps the model used for subsequent runs; has no effect on an
// in-flight run.
func (a *Agent) SetModel(m *ai.Model) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = m
}

// SetThinkingLevel sets the extended-thinking budget level for subsequent runs.
func (a *Agent) SetThinkingLevel(level ai.ThinkingLevel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.thinkingLevel = level
}

// SetTemperature sets the sampling temperature for subsequent runs.
func (a *Agent) SetTemperature(t float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.temperature = t
}

// SetMaxTokens sets the max-output-tokens budget for subsequent runs.
func (a *Agent) SetMaxTokens(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxTokens = n
}

// SetSteeringMode changes the steering queue's drain mode.
func (a *Agent) SetSteeringMode(mode QueueMode) { a.steering.SetMode(mode) }

// SetFollowUpMode changes the follow-up queue's drain mode.
func (a *Agent) SetFollowUpMode(mode QueueMode) { a.followUp.SetMode(mode) }

// RegisterTool adds or replaces a tool definition.
func (a *Agent) RegisterTool(t *Tool) error { return a.registry.Register(t) }

// SetActiveTools restricts which registered tools are offered to the model
// for subsequent runs, by name, in the given order. A nil slice restores
// "every registered tool."
func (a *Agent) SetActiveTools(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeToolNames = append([]string(nil), names...)
}

// ActiveTools returns the currently-active tools, or every registered tool
// if SetActiveTools was never called.
func (a *Agent) ActiveTools() []*Tool {
	a.mu.Lock()
	names := a.activeToolNames
	a.mu.Unlock()
	if names == nil {
		names = a.registry.Names()
	}
	return a.registry.Active(names)
}

// Use runs an extension factory and returns the Extension whose Dispose
// removes every hook/listener it registered.
func (a *Agent) Use(ctx context.Context, factory ExtensionFactory) *Extension {
	return use(a, ctx, factory)
}

// On subscribes fn to evtType ("" subscribes to every event type) and
// returns a disposer that removes just this subscription.
func (a *Agent) On(evtType EventType, fn func(AgentEvent)) func() {
	return a.hooks.On(evtType, fn)
}

// UseTransformContext registers a transformContext stage directly, outside
// of an extension's bulk-dispose bookkeeping.
func (a *Agent) UseTransformContext(fn TransformContextFn) func() {
	return a.hooks.UseTransformContext(fn)
}

// UseBeforeToolCall registers a beforeToolCall stage directly.
func (a *Agent) UseBeforeToolCall(fn BeforeToolCallFn) func() {
	return a.hooks.UseBeforeToolCall(fn)
}

// UseAfterToolResult registers an afterToolResult stage directly.
func (a *Agent) UseAfterToolResult(fn AfterToolResultFn) func() {
	return a.hooks.UseAfterToolResult(fn)
}

// UseInputHook registers an agent-level input hook directly.
func (a *Agent) UseInputHook(fn InputHookFn) func() {
	return a.hooks.UseInputHook(fn)
}

// State reports the current run lifecycle state.
func (a *Agent) State() RunState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History returns a snapshot of the conversation so far. Safe to retain:
// history only ever grows by copy-on-append, never in-place mutation.
func (a *Agent) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history
}

// ReplaceHistory overwrites the conversation wholesale, e.g. after loading
// a persisted session. Fails while a run is in flight.
func (a *Agent) ReplaceHistory(messages []Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRunning {
		return ErrAlreadyRunning
	}
	a.history = append([]Message(nil), messages...)
	return nil
}

// Steer enqueues text to be injected as a user message at the next
// between-tool-calls interruption point of the in-flight run.
func (a *Agent) Steer(text string) {
	a.steering.Push(NewUserMessage(newMessageID(), text))
}

// FollowUp enqueues text to be injected as a user message once the current
// run reaches its terminal stop reason.
func (a *Agent) FollowUp(text string) {
	a.followUp.Push(NewUserMessage(newMessageID(), text))
}

// Abort cancels the in-flight run, if any. The turn loop finalizes with
// stopReason=aborted and emits agent_end; the run may not resume.
func (a *Agent) Abort() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// WaitForIdle blocks until no run is in flight, or ctx is done.
func (a *Agent) WaitForIdle(ctx context.Context) error {
	a.mu.Lock()
	ch := a.idleCh
	a.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prompt runs the input-hook chain over text, appends the resulting user
// message (unless a hook reports "handled", which suppresses both the
// append and the run), and drives the turn loop to completion, returning
// the messages appended during the run. Listeners registered via On or an
// extension observe events synchronously as the run progresses.
func (a *Agent) Prompt(ctx context.Context, text string) ([]Message, error) {
	decision, finalText := a.hooks.runInputHooks(ctx, text)
	if decision.Action == InputHandled {
		return nil, nil
	}

	userMsg := NewMessage(NewUserMessage(newMessageID(), finalText))
	return a.run(ctx, &userMsg)
}

// Continue resumes the turn loop from existing history without adding a
// new user message. Returns ErrNoMessages if history is empty, and
// ErrCannotContinueFromAssistant if the last message is already an
// assistant message -- there is nothing new for the model to respond to.
func (a *Agent) Continue(ctx context.Context) ([]Message, error) {
	a.mu.Lock()
	history := a.history
	a.mu.Unlock()
	if len(history) == 0 {
		return nil, ErrNoMessages
	}
	if history[len(history)-1].Role == RoleAssistant {
		return nil, ErrCannotContinueFromAssistant
	}
	return a.run(ctx, nil)
}

// run performs the single-flight precondition check and drives the turn
// loop against the current history plus entry (if non-nil), which the loop
// appends itself so it is included in agent_end's NewMessages.
func (a *Agent) run(ctx context.Context, entry *Message) ([]Message, error) {
	a.mu.Lock()
	if a.state == StateRunning {
		a.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	priorHistory := a.history
	var initial []Message
	if entry != nil {
		initial = []Message{*entry}
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.state = StateRunning
	a.cancel = cancel
	a.idleCh = make(chan struct{})
	a.mu.Unlock()

	loop := newTurnLoop(runConfig{
		provider:    a.provider,
		model:       a.model,
		system:      a.systemPrompt,
		opts:        a.streamOptions(),
		registry:    a.registry,
		activeTools: a.ActiveTools(),
		hooks:       a.hooks,
		steering:    a.steering,
		followUp:    a.followUp,
		emit:        a.hooks.emit,
	})

	newMessages := loop.Run(runCtx, priorHistory, initial)

	a.mu.Lock()
	for _, m := range newMessages {
		a.history = Append(a.history, m)
	}
	a.state = StateIdle
	a.cancel = nil
	close(a.idleCh)
	a.mu.Unlock()
	cancel()

	return newMessages, nil
}

func (a *Agent) streamOptions() *ai.StreamOptions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &ai.StreamOptions{
		MaxTokens:     a.maxTokens,
		Temperature:   a.temperature,
		ThinkingLevel: a.thinkingLevel,
	}
}
