package idgen

import (
	"errors"
	"math"
)

// Base62 alphabet: 0-9, a-z, A-Z.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = 62

// maxEncodedLen is the length of math.MaxUint64 in Base62.
const maxEncodedLen = 11

var (
	// ErrInvalidCharacter is returned when decoding encounters an invalid character.
	ErrInvalidCharacter = errors.New("invalid base62 character")

	// ErrEmptyString is returned when decoding an empty string.
	ErrEmptyString = errors.New("cannot decode empty string")

	// ErrOverflow is returned when a Base62 string does not fit in 64 bits.
	ErrOverflow = errors.New("base62 value overflows uint64")
)

// charToValue maps each character to its numeric value, -1 for invalid.
var charToValue [256]int

func init() {
	for i := range charToValue {
		charToValue[i] = -1
	}
	for i, c := range alphabet {
		charToValue[c] = i
	}
}

// Encode converts a uint64 to a Base62 string.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [maxEncodedLen]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}

// Decode converts a Base62 string back to a uint64.
func Decode(s string) (uint64, error) {
	if len(s) == 0 {
		return 0, ErrEmptyString
	}

	var result uint64
	for i := 0; i < len(s); i++ {
		val := charToValue[s[i]]
		if val == -1 {
			return 0, ErrInvalidCharacter
		}
		// #nosec G115 -- val is always in range [0, 61] from charToValue lookup
		digit := uint64(val)
		if result > (math.MaxUint64-digit)/base {
			return 0, ErrOverflow
		}
		result = result*base + digit
	}

	return result, nil
}

// IsValid checks if a string contains only valid Base62 characters.
func IsValid(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if charToValue[s[i]] == -1 {
			return false
		}
	}
	return true
}
