// ABOUTME: JSONL session persistence: append-only Entry store behind a load/append boundary
// ABOUTME: Reads line-by-line with bufio.Scanner; crash-safe via O_APPEND; validates tool-call pairing on load

package session

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pi-agent/runtime/internal/agent"
	"github.com/pi-agent/runtime/internal/runtimeconfig"
)

const (
	scannerInitialBuf = 64 * 1024        // 64KB initial buffer
	scannerMaxBuf      = 10 * 1024 * 1024 // 10MB max line

	// pairingValidationConcurrency bounds how many entries' tool-call
	// pairing is checked in parallel during Load.
	pairingValidationConcurrency = 8
)

// scannerBufPool reuses scanner buffers across Load calls.
var scannerBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, scannerInitialBuf)
	},
}

// validSessionID validates that a session ID contains only safe characters
// to prevent path traversal attacks.
var validSessionID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Entry is one persisted record: a finalized message plus the parent-chain
// bookkeeping the session-store boundary specifies ({id, parentId, message,
// createdAt}). ParentID is the previous entry's ID, or "" for the first entry.
type Entry struct {
	ID        string        `json:"id"`
	ParentID  string        `json:"parentId,omitempty"`
	Message   agent.Message `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SessionTree is the full ordered entry list a Load returns.
type SessionTree struct {
	SessionID string
	Entries   []Entry
}

// Messages projects the tree back onto a flat conversation history, in
// entry order, discarding the parent-chain metadata.
func (t *SessionTree) Messages() []agent.Message {
	out := make([]agent.Message, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Message
	}
	return out
}

// Store is a session's append-only JSONL entry log: Load reads everything
// written so far, Append writes one new entry. One Store per session ID.
type Store struct {
	sessionID string
	file      *os.File
	lastID    string
}

// Open creates or resumes a Store for sessionID, validating the ID to
// prevent path traversal, and reading the last entry's ID (if any) so the
// next Append can chain ParentID correctly.
func Open(sessionID string) (*Store, error) {
	if !validSessionID.MatchString(sessionID) {
		return nil, fmt.Errorf("invalid session ID %q: must match [a-zA-Z0-9_-]+", sessionID)
	}

	dir := runtimeconfig.SessionsDir()
	if err := runtimeconfig.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating sessions dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".jsonl")

	tree, err := loadPath(path, sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}

	var lastID string
	if n := len(tree.Entries); n > 0 {
		lastID = tree.Entries[n-1].ID
	}

	return &Store{sessionID: sessionID, file: f, lastID: lastID}, nil
}

// Append writes one new entry chained off the last written entry's ID.
func (s *Store) Append(msg agent.Message, createdAt time.Time) (Entry, error) {
	entry := Entry{
		ID:        newEntryID(),
		ParentID:  s.lastID,
		Message:   msg,
		CreatedAt: createdAt,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshaling entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		return Entry{}, fmt.Errorf("writing entry: %w", err)
	}

	s.lastID = entry.ID
	return entry, nil
}

// Close closes the underlying file.
func (s *Store) Close() error { return s.file.Close() }

// Load reads and validates the full SessionTree for sessionID.
func Load(sessionID string) (*SessionTree, error) {
	if !validSessionID.MatchString(sessionID) {
		return nil, fmt.Errorf("invalid session ID %q: must match [a-zA-Z0-9_-]+", sessionID)
	}
	path := filepath.Join(runtimeconfig.SessionsDir(), sessionID+".jsonl")
	return loadPath(path, sessionID)
}

func loadPath(path, sessionID string) (*SessionTree, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &SessionTree{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening session %s: %w", sessionID, err)
	}
	defer f.Close()

	var entries []Entry
	buf := scannerBufPool.Get().([]byte)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(buf[:0], scannerMaxBuf)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Printf("warning: session %s line %d: malformed JSONL: %v", sessionID, lineNum, err)
			continue
		}
		entries = append(entries, e)
	}
	scannerBufPool.Put(buf)

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning session %s: %w", sessionID, err)
	}

	if err := validateToolCallPairing(entries); err != nil {
		return nil, fmt.Errorf("session %s failed replay validation: %w", sessionID, err)
	}

	return &SessionTree{SessionID: sessionID, Entries: entries}, nil
}

// validateToolCallPairing checks, for every assistant entry with tool-call
// parts, that the immediately following entries contain exactly one
// matching tool-result entry per call (the testable property the turn loop
// itself maintains at runtime; a persisted log that violates it is
// corruption, per the runtime's error-handling design). Entries are
// checked with bounded concurrency since each check only reads its own
// small neighborhood of the slice.
func validateToolCallPairing(entries []Entry) error {
	g := new(errgroup.Group)
	g.SetLimit(pairingValidationConcurrency)

	for i, e := range entries {
		i, e := i, e
		if e.Message.Role != agent.RoleAssistant || e.Message.Assistant == nil {
			continue
		}
		calls := e.Message.Assistant.ToolCalls()
		if len(calls) == 0 {
			continue
		}

		g.Go(func() error {
			return checkPairing(entries, i, calls)
		})
	}

	return g.Wait()
}

func checkPairing(entries []Entry, assistantIdx int, calls []agent.Part) error {
	seen := make(map[string]bool, len(calls))
	want := make(map[string]bool, len(calls))
	for _, c := range calls {
		if want[c.ToolCallID] {
			return fmt.Errorf("entry %d: duplicate toolCallId %q in one assistant message", assistantIdx, c.ToolCallID)
		}
		want[c.ToolCallID] = true
	}

	j := assistantIdx + 1
	for ; j < len(entries) && len(seen) < len(want); j++ {
		r := entries[j].Message.ToolResult
		if entries[j].Message.Role != agent.RoleToolResult || r == nil {
			break
		}
		if !want[r.ToolCallID] {
			return fmt.Errorf("entry %d: dangling toolCallId %q with no matching call", j, r.ToolCallID)
		}
		if seen[r.ToolCallID] {
			return fmt.Errorf("entry %d: toolCallId %q paired more than once", j, r.ToolCallID)
		}
		seen[r.ToolCallID] = true
	}

	if len(seen) != len(want) {
		return fmt.Errorf("entry %d: %d tool call(s) missing a paired result", assistantIdx, len(want)-len(seen))
	}
	return nil
}

// newEntryID mints an entry ID unique within this process's session file.
func newEntryID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("entry_%d_%s", time.Now().UnixNano(), hex.EncodeToString(b))
}
