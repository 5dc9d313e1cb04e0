package backend

import (
	"fmt"
	"time"

	"moneysaver/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Read cache; zero disables it
	CacheTTL time.Duration

	// Zone that decides calendar months; nil means UTC
	Location *time.Location

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,
		CacheTTL:      appConfig.CacheTTL,
		Location:      appConfig.Location(),
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"; missing seed files start empty
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
