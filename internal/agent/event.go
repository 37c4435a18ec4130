// ABOUTME: Agent event stream: tagged events plus a channel-based EventStream
// ABOUTME: Grounded on pkg/ai.EventStream's producer/out/done pattern, generalized to AgentEvent

package agent

import (
	"sync"
	"sync/atomic"
)

// EventType identifies the kind of AgentEvent.
type EventType string

const (
	EventAgentStart EventType = "agent_start"
	EventTurnStart  EventType = "turn_start"
	EventTurnEnd    EventType = "turn_end"
	EventAgentEnd   EventType = "agent_end"

	EventMessageStart  EventType = "message_start"
	EventMessageUpdate EventType = "message_update"
	EventMessageEnd    EventType = "message_end"

	EventTextStart  EventType = "text_start"
	EventTextDelta  EventType = "text_delta"
	EventTextEnd    EventType = "text_end"
	EventThinkStart EventType = "thinking_start"
	EventThinkDelta EventType = "thinking_delta"
	EventThinkEnd   EventType = "thinking_end"

	EventToolCallStart EventType = "toolcall_start"
	EventToolCallDelta EventType = "toolcall_delta"
	EventToolCallEnd   EventType = "toolcall_end"

	EventToolExecStart  EventType = "tool_execution_start"
	EventToolExecUpdate EventType = "tool_execution_update"
	EventToolExecEnd    EventType = "tool_execution_end"
)

// AgentEvent is the single tagged type emitted on the event stream. Only the
// fields relevant to Type are populated; see the EventType constants above
// for which fields each carries.
type AgentEvent struct {
	Type EventType

	// message_start/update/end: which assistant message this refers to.
	MessageID string
	Message   *AssistantMessage

	// message_start/end for a user or tool-result message: the bracketed
	// entry itself. Unused for assistant messages, which carry Message/MessageID.
	Entry *Message

	// message_update wraps one of the token-level events below
	// (text/thinking/toolcall start/delta/end) instead of emitting it as its
	// own top-level event, per the assistantMessageEvent envelope.
	Update *AgentEvent

	// text/thinking/toolcall start-delta-end: index of the part within the
	// in-progress message's content, and the incremental text/JSON.
	PartIndex int
	Delta     string

	// toolcall_start/delta/end
	ToolCallID string
	ToolName   string

	// tool_execution_*: identifies the call and carries partial/final output.
	Result *ToolResultMessage

	// turn_end/agent_end
	StopReason  StopReason
	ToolResults []ToolResultMessage

	// agent_end: the messages appended to history during this Prompt/Continue call.
	NewMessages []Message

	// turn_end/agent_end: the transformContext error that ended the run, if
	// any. Provider failures are reported on the assistant message's
	// ErrorMessage instead.
	Err error
}

// EventStream provides channel-based access to one Prompt/Continue call's
// events. A single producer (the turn loop) calls Send repeatedly and then
// Finish exactly once; a consumer ranges over Events(). Each event is
// received exactly once, so several receivers would split the stream.
//
// Design mirrors pkg/ai.EventStream: Send writes to an internal channel that
// is never closed externally, Finish only closes the done channel, and a
// drain goroutine forwards buffered events to the external channel before
// closing it. This avoids the send-on-closed-channel race between a
// slow consumer and an abort landing mid-stream.
type EventStream struct {
	events chan AgentEvent
	out    chan AgentEvent
	done   chan struct{}
	result atomic.Pointer[[]Message]
	once   sync.Once
}

// NewEventStream creates a new EventStream with the given buffer size.
func NewEventStream(bufSize int) *EventStream {
	s := &EventStream{
		events: make(chan AgentEvent, bufSize),
		out:    make(chan AgentEvent, bufSize),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *EventStream) drain() {
	defer close(s.out)
	for {
		select {
		case ev := <-s.events:
			s.out <- ev
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					s.out <- ev
				default:
					return
				}
			}
		}
	}
}

// Events returns a read-only channel of events, closed when the stream completes.
func (s *EventStream) Events() <-chan AgentEvent {
	return s.out
}

// Send publishes an event. Returns false if the stream already finished.
func (s *EventStream) Send(event AgentEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- event:
		return true
	case <-s.done:
		return false
	}
}

// Finish completes the stream with the new messages created during this call.
// Safe to call more than once; only the first call has effect.
func (s *EventStream) Finish(newMessages []Message) {
	s.once.Do(func() {
		msgs := append([]Message(nil), newMessages...)
		s.result.Store(&msgs)
		close(s.done)
	})
}

// Result blocks until the stream completes and returns the newly-created messages.
func (s *EventStream) Result() []Message {
	<-s.done
	if p := s.result.Load(); p != nil {
		return *p
	}
	return nil
}

// Done returns a channel closed when the stream completes.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}
