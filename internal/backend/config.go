package backend

import (
	"fmt"

	"github.com/ndegwamoche/budget-tracker/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		MongoURI:      appConfig.MongoURI,
		MongoDatabase: appConfig.MongoDatabase,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
	}, nil
}

// Validate checks that the configuration carries what the selected backend
// needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case MongoBackend:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo URI is required for mongo backend")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("mongo database name is required for mongo backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("database path is required for sqlite backend")
		}
	case MemoryBackend:
		// Nothing extra to validate.
	}

	return nil
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{MongoBackend, SQLiteBackend, MemoryBackend}
}
