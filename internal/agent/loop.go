// ABOUTME: Turn loop: drives repeated model-stream calls interleaved with sequential tool execution
// ABOUTME: Emits the full agent_start..turn_start/turn_end..agent_end event sequence for one run

package agent

import (
	"context"

	"github.com/pi-agent/runtime/pkg/ai"
)

// runConfig bundles the per-run settings the loop needs: which provider and
// model to call, which tools are active for this run, and the thinking
// level/temperature/max-tokens knobs.
type runConfig struct {
	provider ai.ApiProvider
	model    *ai.Model
	system   string
	opts     *ai.StreamOptions

	registry    *Registry
	activeTools []*Tool
	hooks       *Hooks
	steering    *MessageQueue
	followUp    *MessageQueue
	emit        func(AgentEvent)
}

// turnLoop owns exactly one Prompt/Continue invocation: it streams the
// model's response, executes any tool calls it carries, appends the new
// messages to history, and repeats until the model stops without a tool
// call and nothing is pending, or a provider/stream error occurs.
type turnLoop struct {
	cfg runConfig
}

func newTurnLoop(cfg runConfig) *turnLoop {
	return &turnLoop{cfg: cfg}
}

// Run drives the loop against priorHistory (the conversation as of before
// this call) plus initial (the user message Prompt supplies, or nothing for
// Continue), and returns every message appended during this call, in order
// -- including initial itself, so agent_end.NewMessages always reflects
// exactly what this call added to the conversation.
//
// The inner loop keeps going as long as there is a pending message to send
// or the previous assistant reply carried a tool call; once both are false
// it drains the follow-up queue and, if that produced anything, restarts.
// ctx's cancellation surfaces through the model stream as an aborted
// assistant message rather than being polled directly here.
func (l *turnLoop) Run(ctx context.Context, priorHistory []Message, initial []Message) []Message {
	l.cfg.emit(AgentEvent{Type: EventAgentStart})
	l.cfg.emit(AgentEvent{Type: EventTurnStart})

	current := priorHistory
	var newMessages []Message

	for _, m := range initial {
		l.appendBracketed(&current, &newMessages, m)
	}

	pending := l.cfg.steering.Drain()
	executor := newToolExecutor(l.cfg.registry, l.cfg.hooks, l.cfg.emit)
	firstInner := true
	lastHadToolCalls := false

	for {
		for firstInner || len(pending) > 0 || lastHadToolCalls {
			if !firstInner {
				l.cfg.emit(AgentEvent{Type: EventTurnStart})
			}
			firstInner = false

			for _, pm := range pending {
				l.appendBracketed(&current, &newMessages, NewMessage(pm))
			}
			pending = nil

			transformed, err := l.cfg.hooks.runTransformContext(ctx, current)
			if err != nil {
				l.cfg.emit(AgentEvent{Type: EventTurnEnd, StopReason: StopError, Err: err})
				l.cfg.emit(AgentEvent{Type: EventAgentEnd, StopReason: StopError, NewMessages: newMessages, Err: err})
				return newMessages
			}

			assistant := l.streamOneMessage(ctx, transformed)
			assistantEntry := NewAssistantMessageEntry(*assistant)
			current = Append(current, assistantEntry)
			newMessages = append(newMessages, assistantEntry)

			if assistant.StopReason == StopError || assistant.StopReason == StopAborted {
				l.cfg.emit(AgentEvent{Type: EventTurnEnd, StopReason: assistant.StopReason, Message: assistant})
				l.cfg.emit(AgentEvent{Type: EventAgentEnd, StopReason: assistant.StopReason, NewMessages: newMessages})
				return newMessages
			}

			var toolResults []ToolResultMessage
			var steeringAfter []UserMessage
			if assistant.HasToolCalls() {
				var buf []UserMessage
				toolResults, buf = executor.Execute(ctx, assistant.ToolCalls(), l.cfg.steering.Drain)
				for _, r := range toolResults {
					l.appendBracketed(&current, &newMessages, NewToolResultMessageEntry(r))
				}
				steeringAfter = buf
			}

			l.cfg.emit(AgentEvent{Type: EventTurnEnd, StopReason: assistant.StopReason, Message: assistant, ToolResults: toolResults})

			lastHadToolCalls = assistant.HasToolCalls()
			if len(steeringAfter) > 0 {
				pending = steeringAfter
			} else {
				pending = l.cfg.steering.Drain()
			}
		}

		pending = l.cfg.followUp.Drain()
		if len(pending) == 0 {
			break
		}
	}

	l.cfg.emit(AgentEvent{Type: EventAgentEnd, NewMessages: newMessages})
	return newMessages
}

// appendBracketed emits message_start, appends entry to both current and
// newMessages, and emits message_end -- the pairing invariant every
// user/tool-result message must satisfy.
func (l *turnLoop) appendBracketed(current *[]Message, newMessages *[]Message, entry Message) {
	l.cfg.emit(AgentEvent{Type: EventMessageStart, Entry: &entry})
	*current = Append(*current, entry)
	*newMessages = append(*newMessages, entry)
	l.cfg.emit(AgentEvent{Type: EventMessageEnd, Entry: &entry})
}

// streamOneMessage projects history to the provider wire format, streams
// one assistant response, and returns the finished AssistantMessage. A
// provider/stream error or context cancellation is folded into an
// error/aborted-flavored AssistantMessage by the stream adapter rather than
// propagated, per the runtime's error-handling policy.
func (l *turnLoop) streamOneMessage(ctx context.Context, history []Message) *AssistantMessage {
	llmCtx := &ai.Context{
		System:   l.cfg.system,
		Messages: convertToLlm(history),
		Tools:    convertTools(l.cfg.activeTools),
	}
	ai.ApplyPromptCaching(llmCtx, l.cfg.model.Api)

	stream := l.cfg.provider.Stream(ctx, l.cfg.model, llmCtx, l.cfg.opts)
	adapter := newStreamAdapter(l.cfg.model.ID, l.cfg.emit)
	return adapter.Consume(stream)
}
