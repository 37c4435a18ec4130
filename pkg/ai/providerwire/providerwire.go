// ABOUTME: Named SSE payload structs for the reference streaming provider, easyjson-annotated
// ABOUTME: Modeled on a typical pkg/ai/provider/{anthropic,openai}/sse_types.go shape

package providerwire

//go:generate easyjson -all

// EventEnvelope is the outer shape of one SSE-style event in the scripted
// stream providerref replays: a discriminant plus the one payload variant
// it carries.
type EventEnvelope struct {
	Type string `json:"type"`

	ContentBlockStart *ContentBlockStart `json:"content_block_start,omitempty"`
	ContentBlockDelta *ContentBlockDelta `json:"content_block_delta,omitempty"`
	ContentBlockStop  *ContentBlockStop  `json:"content_block_stop,omitempty"`
	MessageDelta      *MessageDelta      `json:"message_delta,omitempty"`
	MessageStop       *MessageStop       `json:"message_stop,omitempty"`
}

// ContentBlockStart announces a new content block and its kind.
type ContentBlockStart struct {
	Index int        `json:"index"`
	Block BlockHeader `json:"content_block"`
}

// BlockHeader carries the fields that distinguish a tool_use block from a
// text/thinking block at start time.
type BlockHeader struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ContentBlockDelta carries one incremental chunk of a block's content.
type ContentBlockDelta struct {
	Index int       `json:"index"`
	Delta DeltaBody `json:"delta"`
}

// DeltaBody is the discriminated delta payload: exactly one of Text,
// Thinking, PartialJSON is meaningful, selected by Type.
type DeltaBody struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockStop marks a block as finished.
type ContentBlockStop struct {
	Index int `json:"index"`
}

// MessageDelta carries the top-level stop reason and running usage total.
type MessageDelta struct {
	StopReason string    `json:"stop_reason,omitempty"`
	Usage      UsageDelta `json:"usage"`
}

// UsageDelta mirrors the provider's incremental token accounting fields.
type UsageDelta struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// MessageStop marks the end of the scripted event sequence.
type MessageStop struct{}
