// Package history persists the conversation log as a JSON file.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ragline/ragline/pkg/llm"
)

// Turn is one user/assistant exchange.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Store is a file-backed turn log. All methods serialize on an internal
// mutex, so a single process never interleaves reads and rewrites. Writers
// in other processes are not coordinated; the file is a whole-file
// read-modify-rewrite on every append.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads all turns. A missing file is an empty log, not an error.
func (s *Store) Load() ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Turn, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", s.path, err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}
	return turns, nil
}

// Append adds a turn by rewriting the whole file.
func (s *Store) Append(user, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load()
	if err != nil {
		return err
	}
	turns = append(turns, Turn{User: user, Assistant: assistant})

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write history %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the history file. A missing file is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove history %s: %w", s.path, err)
	}
	return nil
}

// Exists reports whether the history file is present.
func (s *Store) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path)
	return err == nil
}

// Messages replays turns as chat messages: 2N messages for N turns, the
// user message before the assistant message within each turn.
func Messages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, 2*len(turns))
	for _, t := range turns {
		msgs = append(msgs, llm.UserMessage(t.User))
		msgs = append(msgs, llm.AssistantMessage(t.Assistant))
	}
	return msgs
}
