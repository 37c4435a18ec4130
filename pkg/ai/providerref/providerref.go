// ABOUTME: Deterministic in-memory ApiProvider that replays a scripted event sequence
// ABOUTME: Modeled on an anthropic-style streaming accumulator, driving scripted test scenarios

package providerref

import (
	"context"
	"sync"

	"github.com/pi-agent/runtime/pkg/ai"
	"github.com/pi-agent/runtime/pkg/ai/providerwire"
)

// Script is one scripted model turn: a sequence of SSE-shaped envelopes to
// replay as ai.StreamEvents, followed by the terminal stop reason and
// token usage that Stream's Result() will report.
type Script struct {
	Events     []providerwire.EventEnvelope
	StopReason ai.StopReason
	Usage      ai.Usage
}

// Provider is a scripted ai.ApiProvider: each call to Stream consumes the
// next unconsumed Script in order. Calling Stream more times than there are
// scripts replays the last script again, so tests don't need to size the
// script list exactly to the number of turns a multi-turn scenario takes.
type Provider struct {
	mu      sync.Mutex
	scripts []Script
	calls   int
}

// New creates a Provider that replays scripts in order.
func New(scripts ...Script) *Provider {
	return &Provider{scripts: scripts}
}

// Api identifies this provider for registry purposes; it never talks to a
// real backend, but registers under the anthropic wire shape it mimics.
func (p *Provider) Api() ai.Api { return ai.ApiAnthropic }

// Stream replays the next script asynchronously onto a fresh EventStream.
func (p *Provider) Stream(ctx context.Context, model *ai.Model, llmCtx *ai.Context, opts *ai.StreamOptions) *ai.EventStream {
	p.mu.Lock()
	idx := p.calls
	if idx >= len(p.scripts) {
		idx = len(p.scripts) - 1
	}
	p.calls++
	p.mu.Unlock()

	stream := ai.NewEventStream(64)
	if idx < 0 {
		stream.FinishWithError(errNoScript)
		return stream
	}

	script := p.scripts[idx]
	go replay(ctx, stream, script)
	return stream
}

var errNoScript = scriptError("providerref: no script configured")

type scriptError string

func (e scriptError) Error() string { return string(e) }

// replay walks script.Events in order, translating each envelope into the
// ai.StreamEvent(s) a real SSE-backed provider would have produced, then
// finishes the stream with script.StopReason/Usage.
func replay(ctx context.Context, stream *ai.EventStream, script Script) {
	blockKinds := make(map[int]string)

	for _, env := range script.Events {
		select {
		case <-ctx.Done():
			stream.FinishWithError(ctx.Err())
			return
		default:
		}

		switch env.Type {
		case "content_block_start":
			if env.ContentBlockStart == nil {
				continue
			}
			b := env.ContentBlockStart
			blockKinds[b.Index] = b.Block.Type
			if b.Block.Type == "tool_use" {
				stream.Send(ai.StreamEvent{Type: ai.EventToolUseStart, ToolID: b.Block.ID, ToolName: b.Block.Name})
			}
		case "content_block_delta":
			if env.ContentBlockDelta == nil {
				continue
			}
			d := env.ContentBlockDelta
			switch blockKinds[d.Index] {
			case "tool_use":
				stream.Send(ai.StreamEvent{Type: ai.EventToolUseDelta, ToolInput: d.Delta.PartialJSON})
			case "thinking":
				stream.Send(ai.StreamEvent{Type: ai.EventThinkingDelta, Text: d.Delta.Thinking})
			default:
				stream.Send(ai.StreamEvent{Type: ai.EventContentDelta, Text: d.Delta.Text})
			}
		case "content_block_stop":
			if env.ContentBlockStop == nil {
				continue
			}
			switch blockKinds[env.ContentBlockStop.Index] {
			case "tool_use":
				stream.Send(ai.StreamEvent{Type: ai.EventToolUseDone})
			default:
				stream.Send(ai.StreamEvent{Type: ai.EventContentDone})
			}
		case "message_delta":
			if env.MessageDelta == nil {
				continue
			}
			stream.Send(ai.StreamEvent{
				Type: ai.EventMessageDelta,
				Usage: &ai.Usage{
					InputTokens:  env.MessageDelta.Usage.InputTokens,
					OutputTokens: env.MessageDelta.Usage.OutputTokens,
				},
				StopReason: ai.StopReason(env.MessageDelta.StopReason),
			})
		}
	}

	stream.Finish(&ai.AssistantMessage{
		StopReason: script.StopReason,
		Usage:      script.Usage,
	})
}
