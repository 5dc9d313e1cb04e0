package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"moneysaver/internal/storage"
)

func TestMemoryStoreReadWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.Read(ctx, storage.Transactions)
	if err != nil || got != nil {
		t.Fatalf("unexpected read of empty store: %q err=%v", got, err)
	}

	if err := s.Write(ctx, storage.Transactions, json.RawMessage(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = s.Read(ctx, storage.Transactions)
	if err != nil || string(got) != `[{"id":"1"}]` {
		t.Fatalf("unexpected read: %q err=%v", got, err)
	}
	if s.Writes() != 1 {
		t.Fatalf("writes = %d", s.Writes())
	}

	if err := s.Write(ctx, storage.Collection("bogus"), json.RawMessage(`[]`)); err == nil {
		t.Fatalf("expected error for unknown collection")
	}
	if err := s.Write(ctx, storage.Goals, json.RawMessage(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No files -> empty store
	s := NewFromFiles(dir)
	if got, _ := s.Read(context.Background(), storage.Goals); got != nil {
		t.Fatalf("expected empty store when files missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("goals.json", `[{"id":"g1","name":"Bike","targetAmount":200,"currentAmount":0}]`)
	mustWrite("transactions.json", `not json`)

	s = NewFromFiles(dir)
	goals, _ := s.Read(context.Background(), storage.Goals)
	if len(goals) == 0 {
		t.Fatalf("expected seeded goals")
	}
	txs, _ := s.Read(context.Background(), storage.Transactions)
	if txs != nil {
		t.Fatalf("malformed seed should be skipped, got %q", txs)
	}
}
