package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/journal/journal/internal/idgen"
)

const (
	maxUsernameLength    = 64
	maxDisplayNameLength = 128

	// DefaultTimezone is used when a user does not pick one.
	DefaultTimezone = "UTC"
)

// User is a journal author.
type User struct {
	ID          idgen.ID  `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserCreate represents the data needed to create a new user.
type UserCreate struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}

// Normalize lowercases and trims the username, fills in the display name and
// timezone defaults, and validates the result.
func (c *UserCreate) Normalize() error {
	c.Username = strings.ToLower(strings.TrimSpace(c.Username))
	if c.Username == "" {
		return ErrEmptyUsername
	}
	if len(c.Username) > maxUsernameLength {
		return ErrUsernameLength
	}
	if !isValidUsername(c.Username) {
		return ErrInvalidUsername
	}

	c.DisplayName = strings.TrimSpace(c.DisplayName)
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName(c.Username)
	}
	if utf8.RuneCountInString(c.DisplayName) > maxDisplayNameLength {
		return ErrDisplayNameLen
	}

	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

// NewUser builds a User from normalized create data and a freshly minted ID.
func NewUser(id idgen.ID, c UserCreate) *User {
	return &User{
		ID:          id,
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Timezone:    c.Timezone,
		CreatedAt:   id.Time(),
	}
}

// Location returns the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultDisplayName turns "jane_doe.smith" into "Jane Doe Smith".
func DefaultDisplayName(username string) string {
	name := strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(username)

	var b strings.Builder
	b.Grow(len(name))
	prevLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func isValidUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
