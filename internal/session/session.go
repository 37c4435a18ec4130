// ABOUTME: Session orchestrator: wraps an agent.Agent's Prompt/Continue with durable persistence
// ABOUTME: Mirrors every message a run appends -- user, assistant, tool-result -- into a Store

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pi-agent/runtime/internal/agent"
)

// Session pairs one agent.Agent with its append-only persistence log: every
// message a Prompt/Continue call appends to the agent's history is mirrored
// to the Store as one Entry, in order, and a prior run's tree can be
// replayed back into the agent's history on resume.
type Session struct {
	ID    string
	Agent *agent.Agent
	Store *Store
}

// New creates a session for id, opening (or resuming) its Store.
func New(id string, ag *agent.Agent) (*Session, error) {
	store, err := Open(id)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return &Session{ID: id, Agent: ag, Store: store}, nil
}

// Resume opens id's existing SessionTree, replays its messages into ag's
// history, and returns a Session ready to accept new prompts.
func Resume(id string, ag *agent.Agent) (*Session, error) {
	tree, err := Load(id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if err := ag.ReplaceHistory(tree.Messages()); err != nil {
		return nil, fmt.Errorf("replaying session %s: %w", id, err)
	}

	store, err := Open(id)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return &Session{ID: id, Agent: ag, Store: store}, nil
}

// Prompt sends text through the agent and persists every message the run
// appends, in order -- including the initiating user message, which the
// agent's own NewMessages already includes. A persistence failure does not
// unwind the run -- the conversation already happened in memory -- but is
// returned so the caller can surface it.
func (s *Session) Prompt(ctx context.Context, text string) ([]agent.Message, error) {
	newMessages, err := s.Agent.Prompt(ctx, text)
	if err != nil {
		return newMessages, err
	}

	var persistErr error
	for _, m := range newMessages {
		if e := s.appendEntry(m); e != nil && persistErr == nil {
			persistErr = e
		}
	}
	return newMessages, persistErr
}

// Continue resumes the turn loop without adding a new user message,
// persisting whatever the run appends.
func (s *Session) Continue(ctx context.Context) ([]agent.Message, error) {
	newMessages, err := s.Agent.Continue(ctx)
	if err != nil {
		return newMessages, err
	}

	var persistErr error
	for _, m := range newMessages {
		if e := s.appendEntry(m); e != nil && persistErr == nil {
			persistErr = e
		}
	}
	return newMessages, persistErr
}

func (s *Session) appendEntry(msg agent.Message) error {
	_, err := s.Store.Append(msg, time.Now())
	return err
}

// Close closes the underlying Store.
func (s *Session) Close() error {
	return s.Store.Close()
}
