package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"moneysaver/internal/storage"
)

// Store keeps collections in process memory.
type Store struct {
	mu     sync.Mutex
	data   map[storage.Collection]json.RawMessage
	writes int
}

var _ storage.CollectionStore = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[storage.Collection]json.RawMessage)}
}

// NewFromFiles seeds the store from <base>/<collection>.json files when present.
// Missing or malformed files are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, c := range storage.Collections {
		path := filepath.Join(base, c.String()+".json")
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(b, &records); err != nil {
			slog.Warn("Skipping malformed seed file", "component", "storage", "path", path, "error", err)
			continue
		}
		s.data[c] = append(json.RawMessage(nil), b...)
	}
	return s
}

// Read returns a copy of the stored payload.
func (s *Store) Read(_ context.Context, c storage.Collection) (json.RawMessage, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.data[c]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), payload...), nil
}

// Write replaces the stored payload.
func (s *Store) Write(_ context.Context, c storage.Collection, payload json.RawMessage) error {
	if !c.IsValid() {
		return fmt.Errorf("unknown collection %q", c)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("collection %s: payload is not valid JSON", c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c] = append(json.RawMessage(nil), payload...)
	s.writes++
	return nil
}

// Writes returns the number of successful writes, for diagnostics.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
