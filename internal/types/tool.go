// ABOUTME: Shared tool types decoupled from the agent package
// ABOUTME: Keeps the wire-level tool contract importable without pulling in the turn loop

package types

import (
	"context"
	"encoding/json"
	"time"
)

// ImageBlock carries image data produced by a tool through the result
// pipeline, e.g. a screenshot tool or a file-read of a binary image. Not
// serialized to the session log; it exists only for in-process rendering
// and provider wire projection.
type ImageBlock struct {
	Data     []byte
	MimeType string // e.g. "image/png"
	Filename string
}

// ToolResult holds the outcome of a single tool execution.
type ToolResult struct {
	Content  string          `json:"content"`
	Details  json.RawMessage `json:"details,omitempty"`
	IsError  bool            `json:"isError,omitempty"`
	Duration time.Duration   `json:"-"`
	Images   []ImageBlock    `json:"-"`
}

// Tool defines a tool the agent can invoke during its turn loop. Parameters
// is a JSON Schema document describing the shape of the input the model must
// produce; the executor validates a call's input against it before Execute
// runs (see internal/agent/tool.go's Registry.Validate).
type Tool struct {
	Name        string
	Label       string
	Description string
	Parameters  json.RawMessage
	ReadOnly    bool

	// Execute runs the tool. onUpdate, if non-nil, is called zero or more
	// times with incremental output before Execute returns its final result.
	Execute func(ctx context.Context, callID string, input json.RawMessage, onUpdate func(string)) (ToolResult, error)
}
