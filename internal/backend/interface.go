// Package backend assembles the ledger stack (store, cache, event publisher
// and services) selected by configuration.
package backend

import (
	"context"

	"moneysaver/internal/services"
	"moneysaver/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the assembled ledger stack and its cleanup function
type BackendResult struct {
	Store     storage.CollectionStore
	Ledger    *services.LedgerService
	Refresher *services.RefreshOrchestrator
	// Ready reports whether the store can serve requests
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
