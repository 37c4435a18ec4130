package agent

import "testing"

func TestMessageQueue_OneAtATimeDrainsOldestFirst(t *testing.T) {
	q := NewMessageQueue(ModeOneAtATime)
	q.Push(NewUserMessage("1", "first"))
	q.Push(NewUserMessage("2", "second"))

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 1 || drained[0].ID != "1" {
		t.Fatalf("Drain() = %+v, want single oldest entry", drained)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() after drain = %d, want 1", q.Len())
	}

	drained = q.Drain()
	if len(drained) != 1 || drained[0].ID != "2" {
		t.Fatalf("Drain() = %+v, want remaining entry", drained)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after final drain = %d, want 0", q.Len())
	}
}

func TestMessageQueue_AllDrainsEverything(t *testing.T) {
	q := NewMessageQueue(ModeAll)
	q.Push(NewUserMessage("1", "first"))
	q.Push(NewUserMessage("2", "second"))

	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() len = %d, want 2", len(drained))
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestMessageQueue_Clear(t *testing.T) {
	q := NewMessageQueue(ModeAll)
	q.Push(NewUserMessage("1", "first"))
	q.Clear()

	if q.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", q.Len())
	}
}

func TestMessageQueue_SetModeChangesDrainBehavior(t *testing.T) {
	q := NewMessageQueue(ModeOneAtATime)
	q.Push(NewUserMessage("1", "first"))
	q.Push(NewUserMessage("2", "second"))

	q.SetMode(ModeAll)
	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() after SetMode(ModeAll) len = %d, want 2", len(drained))
	}
}
