// Package workerid supplies the worker ID an identifier generator runs under.
package workerid

import (
	"context"
	"errors"
)

// MaxWorkers is the number of distinct worker IDs (0-1023).
const MaxWorkers = 1024

var (
	// ErrNoWorkerIDAvailable is returned when every worker ID is leased.
	ErrNoWorkerIDAvailable = errors.New("no worker ID available")

	// ErrLeaseLost is returned when a held lease expired or was taken over.
	ErrLeaseLost = errors.New("worker ID lease lost")

	// ErrNotAcquired is returned when releasing or refreshing before Acquire.
	ErrNotAcquired = errors.New("worker ID not acquired")
)

// Source hands out a worker ID for the lifetime of the process.
type Source interface {
	// Acquire returns the worker ID to generate under.
	Acquire(ctx context.Context) (int64, error)

	// Release gives the worker ID back.
	Release(ctx context.Context) error
}

// Static is a Source that always returns a configured ID.
// Uniqueness across processes is the operator's responsibility.
type Static struct {
	id int64
}

// NewStatic creates a Static source.
func NewStatic(id int64) *Static {
	return &Static{id: id}
}

// Acquire returns the configured ID.
func (s *Static) Acquire(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.id, nil
}

// Release is a no-op.
func (s *Static) Release(context.Context) error {
	return nil
}
