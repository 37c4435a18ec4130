package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pi-agent/runtime/pkg/ai"
	"github.com/pi-agent/runtime/pkg/ai/providerref"
	"github.com/pi-agent/runtime/pkg/ai/providerwire"
)

var testModel = &ai.Model{
	ID:              "test-model",
	Name:            "Test",
	Api:             ai.ApiAnthropic,
	MaxOutputTokens: 8192,
	SupportsTools:   true,
}

func textScript(text string, stop ai.StopReason) providerref.Script {
	return providerref.Script{
		Events: []providerwire.EventEnvelope{
			{Type: "content_block_start", ContentBlockStart: &providerwire.ContentBlockStart{Index: 0, Block: providerwire.BlockHeader{Type: "text"}}},
			{Type: "content_block_delta", ContentBlockDelta: &providerwire.ContentBlockDelta{Index: 0, Delta: providerwire.DeltaBody{Type: "text_delta", Text: text}}},
			{Type: "content_block_stop", ContentBlockStop: &providerwire.ContentBlockStop{Index: 0}},
		},
		StopReason: stop,
	}
}

func newTestLoop(t *testing.T, provider ai.ApiProvider, events *[]AgentEvent) *turnLoop {
	t.Helper()
	registry := NewRegistry()
	cfg := runConfig{
		provider:    provider,
		model:       testModel,
		system:      "be helpful",
		opts:        &ai.StreamOptions{MaxTokens: 1024},
		registry:    registry,
		activeTools: nil,
		hooks:       NewHooks(),
		steering:    NewMessageQueue(ModeOneAtATime),
		followUp:    NewMessageQueue(ModeOneAtATime),
		emit: func(evt AgentEvent) {
			*events = append(*events, evt)
		},
	}
	return newTurnLoop(cfg)
}

func TestTurnLoop_SimpleTextTurn_EventSequenceBalanced(t *testing.T) {
	provider := providerref.New(textScript("hi there", ai.StopEndTurn))
	var events []AgentEvent
	loop := newTestLoop(t, provider, &events)

	initial := []Message{NewMessage(NewUserMessage("u1", "hello"))}
	newMessages := loop.Run(context.Background(), nil, initial)

	if len(newMessages) != 2 {
		t.Fatalf("newMessages = %d, want 2 (user, assistant)", len(newMessages))
	}
	if newMessages[0].Role != RoleUser {
		t.Fatalf("newMessages[0].Role = %v, want user", newMessages[0].Role)
	}
	if newMessages[1].Role != RoleAssistant {
		t.Fatalf("newMessages[1].Role = %v, want assistant", newMessages[1].Role)
	}
	if got := newMessages[1].Assistant.Text(); got != "hi there" {
		t.Fatalf("assistant text = %q, want %q", got, "hi there")
	}

	var starts, ends int
	var sawAgentStart, sawAgentEnd bool
	for _, e := range events {
		switch e.Type {
		case EventTurnStart:
			starts++
		case EventTurnEnd:
			ends++
		case EventAgentStart:
			sawAgentStart = true
		case EventAgentEnd:
			sawAgentEnd = true
		}
	}
	if starts != ends {
		t.Fatalf("turn_start count %d != turn_end count %d", starts, ends)
	}
	if !sawAgentStart || !sawAgentEnd {
		t.Fatalf("missing agent_start/agent_end: start=%v end=%v", sawAgentStart, sawAgentEnd)
	}
	if events[0].Type != EventAgentStart {
		t.Fatalf("first event = %v, want agent_start", events[0].Type)
	}
	if events[len(events)-1].Type != EventAgentEnd {
		t.Fatalf("last event = %v, want agent_end", events[len(events)-1].Type)
	}
}

func TestTurnLoop_ToolCallThenText(t *testing.T) {
	toolScript := providerref.Script{
		Events: []providerwire.EventEnvelope{
			{Type: "content_block_start", ContentBlockStart: &providerwire.ContentBlockStart{Index: 0, Block: providerwire.BlockHeader{Type: "tool_use", ID: "call_1", Name: "read"}}},
			{Type: "content_block_delta", ContentBlockDelta: &providerwire.ContentBlockDelta{Index: 0, Delta: providerwire.DeltaBody{Type: "input_json_delta", PartialJSON: `{}`}}},
			{Type: "content_block_stop", ContentBlockStop: &providerwire.ContentBlockStop{Index: 0}},
		},
		StopReason: ai.StopToolUse,
	}
	provider := providerref.New(toolScript, textScript("done", ai.StopEndTurn))

	var events []AgentEvent
	loop := newTestLoop(t, provider, &events)
	loop.cfg.registry.Register(&Tool{
		Name: "read",
		Execute: func(_ context.Context, _ string, _ json.RawMessage, _ func(string)) (ToolExecResult, error) {
			return ToolExecResult{Content: "file contents"}, nil
		},
	})
	loop.cfg.activeTools = loop.cfg.registry.Active([]string{"read"})

	initial := []Message{NewMessage(NewUserMessage("u1", "read the file"))}
	newMessages := loop.Run(context.Background(), nil, initial)

	if len(newMessages) != 4 {
		t.Fatalf("newMessages = %d, want 4 (user, assistant tool-call, tool result, assistant text)", len(newMessages))
	}
	if newMessages[0].Role != RoleUser {
		t.Fatalf("newMessages[0] = %+v, want user", newMessages[0])
	}
	if newMessages[1].Role != RoleAssistant || !newMessages[1].Assistant.HasToolCalls() {
		t.Fatalf("newMessages[1] = %+v, want assistant with tool call", newMessages[1])
	}
	if newMessages[2].Role != RoleToolResult || newMessages[2].ToolResult.Content != "file contents" {
		t.Fatalf("newMessages[2] = %+v, want tool result", newMessages[2])
	}
	if newMessages[3].Role != RoleAssistant || newMessages[3].Assistant.Text() != "done" {
		t.Fatalf("newMessages[3] = %+v, want final assistant text", newMessages[3])
	}
}

func TestTurnLoop_FollowUpRestartsInnerLoop(t *testing.T) {
	provider := providerref.New(textScript("first", ai.StopEndTurn), textScript("second", ai.StopEndTurn))
	var events []AgentEvent
	loop := newTestLoop(t, provider, &events)
	loop.cfg.followUp.Push(NewUserMessage("f1", "more?"))

	initial := []Message{NewMessage(NewUserMessage("u1", "hello"))}
	newMessages := loop.Run(context.Background(), nil, initial)

	if len(newMessages) != 4 {
		t.Fatalf("newMessages = %d, want 4 (user, assistant, user, assistant)", len(newMessages))
	}
	wantRoles := []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	for i, want := range wantRoles {
		if newMessages[i].Role != want {
			t.Fatalf("newMessages[%d].Role = %v, want %v", i, newMessages[i].Role, want)
		}
	}
	if got := newMessages[1].Assistant.Text(); got != "first" {
		t.Fatalf("newMessages[1] text = %q, want %q", got, "first")
	}
	if got := newMessages[3].Assistant.Text(); got != "second" {
		t.Fatalf("newMessages[3] text = %q, want %q", got, "second")
	}

	var turnStarts, turnEnds int
	for _, e := range events {
		switch e.Type {
		case EventTurnStart:
			turnStarts++
		case EventTurnEnd:
			turnEnds++
		}
	}
	if turnStarts != 2 || turnEnds != 2 {
		t.Fatalf("turn_start=%d turn_end=%d, want 2 and 2", turnStarts, turnEnds)
	}
}

func TestTurnLoop_SteeringAfterToolsSkipsRemainingCalls(t *testing.T) {
	toolScript := providerref.Script{
		Events: []providerwire.EventEnvelope{
			{Type: "content_block_start", ContentBlockStart: &providerwire.ContentBlockStart{Index: 0, Block: providerwire.BlockHeader{Type: "tool_use", ID: "call_1", Name: "read"}}},
			{Type: "content_block_stop", ContentBlockStop: &providerwire.ContentBlockStop{Index: 0}},
			{Type: "content_block_start", ContentBlockStart: &providerwire.ContentBlockStart{Index: 1, Block: providerwire.BlockHeader{Type: "tool_use", ID: "call_2", Name: "read"}}},
			{Type: "content_block_stop", ContentBlockStop: &providerwire.ContentBlockStop{Index: 1}},
		},
		StopReason: ai.StopToolUse,
	}
	provider := providerref.New(toolScript, textScript("done", ai.StopEndTurn))

	var events []AgentEvent
	loop := newTestLoop(t, provider, &events)
	var calls int
	loop.cfg.registry.Register(&Tool{
		Name: "read",
		Execute: func(_ context.Context, _ string, _ json.RawMessage, _ func(string)) (ToolExecResult, error) {
			calls++
			if calls == 1 {
				loop.cfg.steering.Push(NewUserMessage("s1", "wait"))
			}
			return ToolExecResult{Content: "file contents"}, nil
		},
	})
	loop.cfg.activeTools = loop.cfg.registry.Active([]string{"read"})

	initial := []Message{NewMessage(NewUserMessage("u1", "read two files"))}
	newMessages := loop.Run(context.Background(), nil, initial)

	var skipped int
	for _, m := range newMessages {
		if m.Role == RoleToolResult && m.ToolResult.Content == "Skipped due to queued user message." {
			skipped++
		}
	}
	if skipped != 1 {
		t.Fatalf("skipped tool results = %d, want 1", skipped)
	}
	if calls != 1 {
		t.Fatalf("tool executions = %d, want 1 (second call must be skipped)", calls)
	}

	var execStarts, execEnds int
	for _, e := range events {
		switch e.Type {
		case EventToolExecStart:
			execStarts++
		case EventToolExecEnd:
			execEnds++
		}
	}
	if execStarts != 2 || execEnds != 2 {
		t.Fatalf("tool_execution_start=%d tool_execution_end=%d, want 2 and 2", execStarts, execEnds)
	}
}

func TestTurnLoop_ContextCancellationAborts(t *testing.T) {
	provider := providerref.New(textScript("ignored", ai.StopEndTurn))
	var events []AgentEvent
	loop := newTestLoop(t, provider, &events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	initial := []Message{NewMessage(NewUserMessage("u1", "hello"))}
	newMessages := loop.Run(ctx, nil, initial)

	if len(newMessages) != 2 {
		t.Fatalf("newMessages = %d, want 2 (user, aborted assistant draft)", len(newMessages))
	}
	if newMessages[0].Role != RoleUser {
		t.Fatalf("newMessages[0].Role = %v, want user", newMessages[0].Role)
	}
	assistant := newMessages[1]
	if assistant.Role != RoleAssistant || assistant.Assistant.StopReason != StopAborted {
		t.Fatalf("newMessages[1] = %+v, want aborted assistant", assistant)
	}
	if assistant.Assistant.ErrorMessage == "" {
		t.Fatal("aborted assistant message should carry a non-empty ErrorMessage")
	}

	var messageEnds int
	for _, e := range events {
		if e.Type == EventMessageEnd && e.Message != nil {
			messageEnds++
		}
	}
	if messageEnds != 1 {
		t.Fatalf("assistant message_end count = %d, want exactly 1", messageEnds)
	}

	last := events[len(events)-1]
	if last.Type != EventAgentEnd || last.StopReason != StopAborted {
		t.Fatalf("last event = %+v, want agent_end/aborted", last)
	}
}
