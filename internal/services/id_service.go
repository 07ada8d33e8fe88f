// Package services contains business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/pkg/logger"
)

// MaxMintCount is the largest batch a single Mint call hands out.
const MaxMintCount = 100

// ErrInvalidCount is returned when Mint is asked for fewer than 1 or more
// than MaxMintCount IDs.
var ErrInvalidCount = fmt.Errorf("count must be between 1 and %d", MaxMintCount)

// IDMinter produces new identifiers. *idgen.Generator satisfies it.
type IDMinter interface {
	Generate() (idgen.ID, error)
}

// DecodedID is the breakdown of an identifier into its fields.
type DecodedID struct {
	ID        idgen.ID  `json:"id"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	WorkerID  int64     `json:"worker_id"`
	Sequence  int64     `json:"sequence"`
}

// IDService defines the interface for raw identifier operations.
type IDService interface {
	Mint(ctx context.Context, n int) ([]idgen.ID, error)
	Decode(raw string) (*DecodedID, error)
}

// IDServiceImpl implements IDService.
type IDServiceImpl struct {
	minter IDMinter
	log    *logger.Logger
}

// NewIDService creates a new IDService instance.
func NewIDService(minter IDMinter, log *logger.Logger) *IDServiceImpl {
	return &IDServiceImpl{minter: minter, log: orDiscard(log)}
}

// Mint generates n IDs. The first generation failure aborts the batch and is
// returned unchanged; no partial batch is handed out.
func (s *IDServiceImpl) Mint(ctx context.Context, n int) ([]idgen.ID, error) {
	if n < 1 || n > MaxMintCount {
		return nil, ErrInvalidCount
	}

	ids := make([]idgen.ID, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := mint(s.minter, logger.FromContext(ctx, s.log), "raw")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode parses a decimal or Base62 ID and splits it into its fields.
func (s *IDServiceImpl) Decode(raw string) (*DecodedID, error) {
	id, err := idgen.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &DecodedID{
		ID:        id,
		Code:      id.Code(),
		Timestamp: id.Time(),
		WorkerID:  id.WorkerID(),
		Sequence:  id.Sequence(),
	}, nil
}

// mint draws one ID, logging and counting failures. kind names what the ID
// is for.
func mint(minter IDMinter, log *logger.Logger, kind string) (idgen.ID, error) {
	id, err := minter.Generate()
	if err != nil {
		reason := generationErrorReason(err)
		metrics.RecordIDGenerationError(reason)
		log.Error("id generation failed", "kind", kind, "reason", reason, "error", err)
		return 0, err
	}
	metrics.RecordIDsGenerated(1)
	return id, nil
}

func generationErrorReason(err error) string {
	switch {
	case errors.Is(err, idgen.ErrClockMovedBackwards):
		return metrics.ReasonClockBackwards
	case errors.Is(err, idgen.ErrSequenceExhausted):
		return metrics.ReasonSequenceExhausted
	default:
		return metrics.ReasonOther
	}
}

func orDiscard(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.New(io.Discard, "error")
	}
	return log
}
