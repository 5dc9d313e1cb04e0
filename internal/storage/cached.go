package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"moneysaver/internal/cache"
)

// CachedStore is a read-through, write-through cache in front of another store.
type CachedStore struct {
	next  CollectionStore
	cache *cache.LRUCache[Collection, json.RawMessage]
}

var _ CollectionStore = (*CachedStore)(nil)

func NewCachedStore(next CollectionStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.NewLRUCache[Collection, json.RawMessage](len(Collections), ttl),
	}
}

// Cache exposes the underlying cache for cleanup registration.
func (s *CachedStore) Cache() *cache.LRUCache[Collection, json.RawMessage] {
	return s.cache
}

func (s *CachedStore) Read(ctx context.Context, c Collection) (json.RawMessage, error) {
	if payload, ok := s.cache.Get(c); ok {
		return clone(payload), nil
	}
	payload, err := s.next.Read(ctx, c)
	if err != nil {
		return nil, err
	}
	s.cache.Set(c, clone(payload))
	return payload, nil
}

func (s *CachedStore) Write(ctx context.Context, c Collection, payload json.RawMessage) error {
	if err := s.next.Write(ctx, c, payload); err != nil {
		// The backing state is unknown after a failed write
		s.cache.Delete(c)
		return err
	}
	s.cache.Set(c, clone(payload))
	slog.DebugContext(ctx, "Collection cache updated", "component", "cache", "collection", c.String())
	return nil
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
