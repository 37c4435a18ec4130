// ABOUTME: Tool registry with real JSON Schema validation of tool-call input
// ABOUTME: Upgrades the hand-rolled "required fields only" check to santhosh-tekuri/jsonschema

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds the tools available to a turn loop, keyed by name, plus a
// compiled JSON Schema per tool so Validate can reject malformed input at
// the boundary before Execute ever runs.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds or replaces a tool. If the tool declares a non-empty
// Parameters schema, it is compiled immediately so a malformed schema fails
// at registration time rather than at the first call.
func (r *Registry) Register(t *Tool) error {
	var schema *jsonschema.Schema
	if len(t.Parameters) > 0 {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(t.Name+".json", bytes.NewReader(t.Parameters)); err != nil {
			return fmt.Errorf("adding schema resource for tool %s: %w", t.Name, err)
		}
		compiled, err := compiler.Compile(t.Name + ".json")
		if err != nil {
			return fmt.Errorf("compiling schema for tool %s: %w", t.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	if schema != nil {
		r.schemas[t.Name] = schema
	} else {
		delete(r.schemas, t.Name)
	}
	return nil
}

// Get returns the tool registered under name, or nil if none is registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Active returns the subset of registered tools whose name appears in
// names, preserving the order of names. Unknown names are skipped.
func (r *Registry) Active(names []string) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks a tool call's input against the tool's compiled schema.
// A tool with no schema accepts any input. An unknown tool name has no
// schema either and so also passes; the executor looks the tool up first
// and turns a missing tool into a tool-result error before calling Validate.
func (r *Registry) Validate(name string, input json.RawMessage) error {
	r.mu.RLock()
	schema, hasSchema := r.schemas[name]
	r.mu.RUnlock()
	if !hasSchema {
		return nil
	}

	var v any
	if len(input) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(input, &v); err != nil {
		return fmt.Errorf("tool %s input is not valid JSON: %w", name, err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("tool %s input failed schema validation: %w", name, err)
	}
	return nil
}
