package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneysaver/internal/amqp"
	"moneysaver/internal/cache"
	"moneysaver/internal/services"
	"moneysaver/internal/storage"
	"moneysaver/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store    storage.CollectionStore
		ready    func(context.Context) error
		cleanups []CleanupFunc
	)

	switch config.Type {
	case SQLiteBackend:
		sqliteStore, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store = sqliteStore
		ready = sqliteStore.Ping
		cleanups = append(cleanups, sqliteStore.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data" // Default directory
		}
		store = memory.NewFromFiles(dataDir)
		ready = func(context.Context) error { return nil }
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.CacheTTL > 0 {
		cached := storage.NewCachedStore(store, config.CacheTTL)
		manager := cache.NewManager()
		manager.Register(cached.Cache())
		manager.StartCleanup(cleanupInterval(config.CacheTTL))
		store = cached
		cleanups = append(cleanups, func() error {
			manager.Stop()
			return nil
		})
		f.logger.Info("Enabled ledger read cache", "ttl", config.CacheTTL)
	}

	// Initialize AMQP client (optional)
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(storage.NewLedger(store), publisher,
		services.WithLocation(config.Location))

	return &BackendResult{
		Store:     store,
		Ledger:    ledger,
		Refresher: services.NewRefreshOrchestrator(ledger, nil),
		Ready:     ready,
		Cleanup:   closeAll(cleanups),
	}, nil
}

// closeAll runs cleanups in reverse order of acquisition.
func closeAll(cleanups []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return time.Minute
	}
	return ttl
}
