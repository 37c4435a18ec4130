// ABOUTME: Model-stream adapter: consumes pkg/ai.StreamEvent and builds an AssistantMessage incrementally
// ABOUTME: Modeled on an anthropic-style streaming accumulator (blockState/startBlock/appendText/buildResult)

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pi-agent/runtime/pkg/ai"
)

// blockState tracks one in-progress content part while its stream deltas
// arrive. Exactly one of text/toolInput accumulates content, selected by
// contentType.
type blockState struct {
	contentType PartType
	toolCallID  string
	toolName    string
	text        []byte
	toolInput   []byte
	ended       bool
}

func (b *blockState) appendText(delta string) {
	b.text = append(b.text, delta...)
}

func (b *blockState) appendToolInput(delta string) {
	b.toolInput = append(b.toolInput, delta...)
}

// toPart converts the accumulated block into a finished Part.
func (b *blockState) toPart() Part {
	switch b.contentType {
	case PartToolCall:
		input := b.toolInput
		if len(input) == 0 {
			input = []byte("{}")
		}
		return ToolCallPart(b.toolCallID, b.toolName, json.RawMessage(input))
	case PartThinking:
		return ThinkingPart(string(b.text))
	default:
		return TextPart(string(b.text))
	}
}

// streamAdapter consumes one pkg/ai.EventStream and incrementally builds an
// AssistantMessage, calling emit for every agent-level event the turn loop
// should forward to its consumers. It owns exactly one in-flight message:
// callers must create one streamAdapter per model call.
type streamAdapter struct {
	messageID string
	model     string
	blocks    []*blockState
	emit      func(AgentEvent)
}

func newStreamAdapter(model string, emit func(AgentEvent)) *streamAdapter {
	return &streamAdapter{
		messageID: uuid.NewString(),
		model:     model,
		emit:      emit,
	}
}

// Consume drains the stream to completion, emitting message_start,
// message_update (wrapping text/thinking/toolcall start/delta/end), and
// message_end events as it goes, and returns the finished AssistantMessage.
// The returned StopReason honors the invariant that toolUse is set iff the
// message carries at least one tool-call part, regardless of what the
// provider reported. A provider failure or context cancellation surfaces as
// EventError; this is distinguished into stopReason=aborted (context
// canceled/deadline exceeded) or stopReason=error (anything else), with the
// underlying text recorded on the finished message's ErrorMessage.
func (a *streamAdapter) Consume(stream *ai.EventStream) *AssistantMessage {
	a.emit(AgentEvent{Type: EventMessageStart, MessageID: a.messageID})

	var usage Usage
	var stopReason StopReason = StopEndTurn
	var errMessage string

	for ev := range stream.Events() {
		switch ev.Type {
		case ai.EventMessageStart:
			// Nothing additional: message_start already emitted above.
		case ai.EventContentDelta:
			a.appendText(PartText, ev.Text)
		case ai.EventThinkingDelta:
			a.appendText(PartThinking, ev.Text)
		case ai.EventToolUseStart:
			a.startToolCall(ev.ToolID, ev.ToolName)
		case ai.EventToolUseDelta:
			a.appendToolInput(ev.ToolInput)
		case ai.EventToolUseDone:
			a.endBlock()
		case ai.EventContentDone:
			a.endBlock()
		case ai.EventMessageDelta:
			if ev.Usage != nil {
				usage = convertUsage(*ev.Usage)
			}
			if ev.StopReason != "" {
				stopReason = convertStopReason(ev.StopReason)
			}
		case ai.EventError:
			if errors.Is(ev.Error, context.Canceled) || errors.Is(ev.Error, context.DeadlineExceeded) {
				stopReason = StopAborted
			} else {
				stopReason = StopError
			}
			if ev.Error != nil {
				errMessage = ev.Error.Error()
			}
		}
	}

	// Finalize any block left open by an error/abort that cut the stream
	// short, so the draft message's parts are still well-formed.
	a.endBlock()

	if final := stream.Result(); final != nil {
		usage = convertUsage(final.Usage)
		if final.StopReason != "" {
			stopReason = convertStopReason(final.StopReason)
		}
	}

	msg := &AssistantMessage{
		ID:           a.messageID,
		Content:      a.finishedParts(),
		Usage:        usage,
		Model:        a.model,
		ErrorMessage: errMessage,
		CreatedAt:    time.Now(),
	}
	if msg.HasToolCalls() {
		msg.StopReason = StopToolUse
	} else if stopReason == StopToolUse {
		msg.StopReason = StopEndTurn
	} else {
		msg.StopReason = stopReason
	}

	a.emit(AgentEvent{Type: EventMessageEnd, MessageID: a.messageID, Message: msg})
	return msg
}

func (a *streamAdapter) currentBlock() *blockState {
	if len(a.blocks) == 0 {
		return nil
	}
	return a.blocks[len(a.blocks)-1]
}

// emitUpdate wraps inner as the assistantMessageEvent carried by a
// message_update: token-level events never travel as independent
// top-level events.
func (a *streamAdapter) emitUpdate(inner AgentEvent) {
	inner.MessageID = a.messageID
	a.emit(AgentEvent{Type: EventMessageUpdate, MessageID: a.messageID, Update: &inner})
}

func (a *streamAdapter) appendText(kind PartType, delta string) {
	cur := a.currentBlock()
	if cur == nil || cur.contentType != kind {
		a.startBlock(kind, "", "")
		cur = a.currentBlock()
	}
	cur.appendText(delta)
	idx := len(a.blocks) - 1
	evType := EventTextDelta
	if kind == PartThinking {
		evType = EventThinkDelta
	}
	a.emitUpdate(AgentEvent{Type: evType, PartIndex: idx, Delta: delta})
}

func (a *streamAdapter) startToolCall(callID, name string) {
	a.startBlock(PartToolCall, callID, name)
	idx := len(a.blocks) - 1
	a.emitUpdate(AgentEvent{Type: EventToolCallStart, PartIndex: idx, ToolCallID: callID, ToolName: name})
}

func (a *streamAdapter) appendToolInput(delta string) {
	cur := a.currentBlock()
	if cur == nil {
		return
	}
	cur.appendToolInput(delta)
	idx := len(a.blocks) - 1
	a.emitUpdate(AgentEvent{Type: EventToolCallDelta, PartIndex: idx, Delta: delta})
}

func (a *streamAdapter) startBlock(kind PartType, toolCallID, toolName string) {
	a.endBlock()
	idx := len(a.blocks)
	a.blocks = append(a.blocks, &blockState{contentType: kind, toolCallID: toolCallID, toolName: toolName})

	switch kind {
	case PartText:
		a.emitUpdate(AgentEvent{Type: EventTextStart, PartIndex: idx})
	case PartThinking:
		a.emitUpdate(AgentEvent{Type: EventThinkStart, PartIndex: idx})
	}
}

// endBlock finalizes the current block (if any), emitting its *_end event.
// Idempotent: multiple consecutive endBlock calls with no new content are harmless.
func (a *streamAdapter) endBlock() {
	cur := a.currentBlock()
	if cur == nil || cur.ended {
		return
	}
	cur.ended = true
	idx := len(a.blocks) - 1
	switch cur.contentType {
	case PartText:
		a.emitUpdate(AgentEvent{Type: EventTextEnd, PartIndex: idx})
	case PartThinking:
		a.emitUpdate(AgentEvent{Type: EventThinkEnd, PartIndex: idx})
	case PartToolCall:
		a.emitUpdate(AgentEvent{Type: EventToolCallEnd, PartIndex: idx, ToolCallID: cur.toolCallID, ToolName: cur.toolName})
	}
}

func (a *streamAdapter) finishedParts() []Part {
	parts := make([]Part, 0, len(a.blocks))
	for _, b := range a.blocks {
		parts = append(parts, b.toPart())
	}
	return parts
}

func convertUsage(u ai.Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CacheRead:    u.CacheRead,
		CacheWrite:   u.CacheCreate,
	}
}

func convertStopReason(r ai.StopReason) StopReason {
	switch r {
	case ai.StopToolUse:
		return StopToolUse
	case ai.StopMaxTokens:
		return StopLength
	case ai.StopError:
		return StopError
	case ai.StopAborted:
		return StopAborted
	default:
		return StopEndTurn
	}
}
