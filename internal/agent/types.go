// ABOUTME: Core agent type aliases shared across the turn loop, executor, and façade
// ABOUTME: Wire-format agnostic; re-exports shared types from internal/types

package agent

import (
	"github.com/pi-agent/runtime/internal/types"
)

// Tool and its result type live in internal/types so they can be imported
// without pulling in the turn loop itself.
type Tool = types.Tool
type ToolExecResult = types.ToolResult
type ImageBlock = types.ImageBlock

// RunState is the lifecycle state of a single Prompt/Continue invocation.
type RunState int32

const (
	StateIdle      RunState = iota // not running
	StateRunning                   // actively streaming/executing
	StateAborted                   // not reported by Agent: after Abort, State stays StateRunning until the run ends, then StateIdle
)
