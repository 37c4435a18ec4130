package agent

import (
	"encoding/json"
	"testing"
)

func TestRegistry_ValidateNoSchemaAcceptsAnything(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Tool{Name: "noop"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Validate("noop", json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestRegistry_ValidateEnforcesSchema(t *testing.T) {
	r := NewRegistry()
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	if err := r.Register(&Tool{Name: "read", Parameters: schema}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Validate("read", json.RawMessage(`{"path":"/tmp/x"}`)); err != nil {
		t.Fatalf("Validate() with valid input error: %v", err)
	}

	if err := r.Validate("read", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for missing required field")
	}

	if err := r.Validate("read", json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestRegistry_ActivePreservesOrderSkipsUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{Name: "a"})
	r.Register(&Tool{Name: "b"})
	r.Register(&Tool{Name: "c"})

	active := r.Active([]string{"c", "missing", "a"})
	if len(active) != 2 {
		t.Fatalf("Active() len = %d, want 2", len(active))
	}
	if active[0].Name != "c" || active[1].Name != "a" {
		t.Fatalf("Active() order = [%s, %s], want [c, a]", active[0].Name, active[1].Name)
	}
}
