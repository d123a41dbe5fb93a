package store

import (
	"context"
	"errors"

	"code-lottery-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	// ErrValidation marks malformed or out-of-range input or persisted values.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists marks a duplicate code on import.
	ErrAlreadyExists = errors.New("already exists")
	// ErrExhausted marks a tier or pool with no usable stock.
	ErrExhausted = errors.New("pool exhausted")
	// ErrRateLimited marks a weekly or daily draw limit.
	ErrRateLimited = errors.New("rate limit reached")
	// ErrExpired marks a passed event deadline or a lapsed membership TTL.
	ErrExpired = errors.New("expired")
	// ErrNotFound marks an operation on an unknown user or code.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a durable write that failed.
	ErrPersistence = errors.New("persistence failed")
	// ErrCorrupted marks a state file and backup that are both unreadable.
	ErrCorrupted = errors.New("state corrupted")
	// ErrLocked marks a file already owned by another store or process.
	ErrLocked = errors.New("locked by another process")
)

// LoadReport describes how a state document was obtained.
type LoadReport struct {
	// Fresh is set when neither the live file nor its backup existed.
	Fresh bool
	// Recovered is set when the live file was unusable and the backup was used.
	Recovered bool
	// Warnings lists every value schema validation had to correct.
	Warnings []string
}

// StateStore persists the whole state document.
type StateStore interface {
	Load(ctx context.Context) (*models.State, LoadReport, error)
	Save(ctx context.Context, state *models.State) error
	Close() error
}

// AuditLog is the append-only record of state-changing actions.
type AuditLog interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	CountByAction(ctx context.Context) (map[string]int, error)
	Close()
}
