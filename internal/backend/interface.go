package backend

import (
	"context"

	"inorbit/internal/ports"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready data backend plus the optional event publisher.
// Publisher is nil when AMQP is not configured.
type Result struct {
	Store     ports.Store
	Publisher ports.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	SeedFile  string
	SeedWatch bool
	// OnReload runs after the seed file was reloaded.
	OnReload func()

	// Completion events, optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
