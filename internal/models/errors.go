// Package models contains domain models and entities.
package models

import "errors"

// Validation errors
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameLength   = errors.New("username must be at most 64 characters")
	ErrInvalidUsername  = errors.New("username may only contain a-z, 0-9, '-', '_' and '.'")
	ErrDisplayNameLen   = errors.New("display name must be at most 128 characters")
	ErrInvalidTimezone  = errors.New("invalid timezone")
	ErrTitleTooLong     = errors.New("title must be at most 256 characters")
	ErrTooManyTags      = errors.New("an entry can have at most 32 tags")
	ErrInvalidTag       = errors.New("tags must be at most 64 characters")
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username is taken")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrEmptyEntryUpdate = errors.New("entry update has no fields")
)
