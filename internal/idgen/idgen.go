// Package idgen mints 64-bit, time-ordered identifiers for journal records.
package idgen

import (
	"strconv"
	"time"
)

// Epoch is 2018-01-01T00:00:00Z in Unix milliseconds.
const Epoch int64 = 1514764800000

// Bit layout: timestamp << 22 | worker << 10 | counter.
// The counter is 12 bits wide but the worker is only shifted by 10, so
// counters >= 1024 overlap the two lowest worker bits. Existing IDs depend on
// this arithmetic, so it must not be changed.
const (
	timestampShift = 22
	workerShift    = 10

	MaxWorkerID     = 1023
	sequenceModulus = 4096

	workerMask   = 0xFFF
	sequenceMask = 0x3FF
)

// ID is an opaque 64-bit identifier carrying its creation time.
type ID uint64

// ExtractTimestamp decodes the creation time embedded in an ID.
// Any value is accepted; IDs that were never generated decode to a
// well-defined but meaningless time.
func ExtractTimestamp(id ID) time.Time {
	return time.UnixMilli(int64(id>>timestampShift) + Epoch).UTC()
}

// Time returns the creation time of the ID.
func (id ID) Time() time.Time {
	return ExtractTimestamp(id)
}

// Millis returns the milliseconds since Epoch stored in the ID.
func (id ID) Millis() int64 {
	return int64(id >> timestampShift)
}

// WorkerID returns bits 10-21 of the ID.
func (id ID) WorkerID() int64 {
	return int64((id >> workerShift) & workerMask)
}

// Sequence returns bits 0-9 of the ID.
func (id ID) Sequence() int64 {
	return int64(id & sequenceMask)
}

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Code returns the Base62 form of the ID.
func (id ID) Code() string {
	return Encode(uint64(id))
}

// Parse accepts either the decimal or the Base62 form of an ID.
// Decimal wins when the string is all digits.
func Parse(s string) (ID, error) {
	if s == "" {
		return 0, ErrEmptyString
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ID(n), nil
	}
	n, err := Decode(s)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}

// MarshalText encodes the ID in decimal, so JSON carries it as a string.
func (id ID) MarshalText() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(id), 10), nil
}

// UnmarshalText accepts the same forms as Parse.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
