package idgen

import "errors"

// Common errors for ID generation.
var (
	// ErrInvalidWorkerID is returned when the worker ID is out of valid range (0-1023).
	ErrInvalidWorkerID = errors.New("worker ID must be between 0 and 1023")

	// ErrClockMovedBackwards is returned when the clock reads earlier than the last generation.
	ErrClockMovedBackwards = errors.New("clock moved backwards, refusing to generate ID")

	// ErrSequenceExhausted is returned when 4096 IDs were already generated in the current millisecond.
	ErrSequenceExhausted = errors.New("sequence exhausted for current millisecond")
)
