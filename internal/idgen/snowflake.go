package idgen

import (
	"fmt"
	"sync"
	"time"
)

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock used by the generator.
func WithClock(c Clock) Option {
	return func(g *Generator) {
		if c != nil {
			g.clock = c
		}
	}
}

// Generator produces IDs for a single worker. It is safe for concurrent use.
//
// The running counter is not reset when a new millisecond starts. Instead the
// counter value at the start of the millisecond is remembered, and the
// millisecond is exhausted once the counter wraps back around to it.
type Generator struct {
	mu           sync.Mutex
	clock        Clock
	workerID     int64
	lastMillis   int64
	lastSequence int64
	counter      int64
}

// NewGenerator creates a Generator for the given worker.
// workerID must be between 0 and 1023 (inclusive).
func NewGenerator(workerID int64, opts ...Option) (*Generator, error) {
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerID, workerID)
	}

	g := &Generator{
		clock:    SystemClock{},
		workerID: workerID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns the next ID. It never blocks waiting for the clock:
// a clock regression or an exhausted millisecond is reported as an error.
func (g *Generator) Generate() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now().UnixMilli() - Epoch

	if now < g.lastMillis {
		return 0, fmt.Errorf("%w: now=%dms last=%dms", ErrClockMovedBackwards, now, g.lastMillis)
	}
	if now > g.lastMillis {
		g.lastMillis = now
		g.lastSequence = g.counter
	}

	next := (g.counter + 1) % sequenceModulus
	if now == g.lastMillis && next == g.lastSequence {
		return 0, fmt.Errorf("%w: %d ids at %dms", ErrSequenceExhausted, sequenceModulus, now)
	}
	g.counter = next

	// #nosec G115 -- now is non-negative after the backwards check, worker and counter are bounded
	return ID(uint64(now)<<timestampShift | uint64(g.workerID)<<workerShift | uint64(g.counter)), nil
}

// WorkerID returns the configured worker ID.
func (g *Generator) WorkerID() int64 {
	return g.workerID
}
