package backend

import (
	"context"
	"fmt"

	"github.com/ndegwamoche/budget-tracker/internal/log"
	"github.com/ndegwamoche/budget-tracker/internal/store/memory"
	"github.com/ndegwamoche/budget-tracker/internal/store/mongo"
	"github.com/ndegwamoche/budget-tracker/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStore),
	}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*Result, error) {
	st, cleanup, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mongo backend: %w", err)
	}

	f.logger.Info("Initialized mongo backend", "database", config.MongoDatabase)

	return &Result{
		Backend: st,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	st, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite backend: %w", err)
	}

	f.logger.Info("Initialized sqlite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Backend: st,
		Cleanup: st.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	f.logger.Info("Initialized memory backend")

	return &Result{
		Backend: memory.New(),
		Cleanup: nil,
	}, nil
}
