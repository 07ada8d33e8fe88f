package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/journal/journal/internal/idgen"
)

const (
	// DefaultEntryTitle is used when an entry is saved without a title.
	DefaultEntryTitle = "Untitled entry"

	maxTitleLength = 256
	maxTags        = 32
	maxTagLength   = 64
)

// Entry is a single journal entry.
type Entry struct {
	ID        idgen.ID  `json:"id"`
	AuthorID  idgen.ID  `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryCreate represents the data needed to create a new entry.
type EntryCreate struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// EntryUpdate holds the fields to change; nil fields are left as they are.
type EntryUpdate struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// Normalize trims the text fields, applies the default title and cleans tags.
func (c *EntryCreate) Normalize() error {
	title, err := normalizeTitle(c.Title)
	if err != nil {
		return err
	}
	tags, err := NormalizeTags(c.Tags)
	if err != nil {
		return err
	}
	c.Title = title
	c.Content = strings.TrimSpace(c.Content)
	c.Tags = tags
	return nil
}

// NewEntry builds an Entry from normalized create data and a freshly minted ID.
func NewEntry(id, authorID idgen.ID, c EntryCreate) *Entry {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Entry{
		ID:        id,
		AuthorID:  authorID,
		Title:     c.Title,
		Content:   c.Content,
		Tags:      tags,
		CreatedAt: id.Time(),
	}
}

// Apply validates the update and copies the set fields onto e.
// e is left untouched when validation fails.
func (u *EntryUpdate) Apply(e *Entry) error {
	if u.Title == nil && u.Content == nil && u.Tags == nil {
		return ErrEmptyEntryUpdate
	}

	title, content, tags := e.Title, e.Content, e.Tags
	if u.Title != nil {
		t, err := normalizeTitle(*u.Title)
		if err != nil {
			return err
		}
		title = t
	}
	if u.Content != nil {
		content = strings.TrimSpace(*u.Content)
	}
	if u.Tags != nil {
		t, err := NormalizeTags(*u.Tags)
		if err != nil {
			return err
		}
		tags = t
	}

	e.Title, e.Content, e.Tags = title, content, tags
	return nil
}

// HasTag reports whether the entry carries the tag, compared case-insensitively.
func (e *Entry) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags lowercases and trims tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			return nil, ErrInvalidTag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, ErrTooManyTags
	}
	return out, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultEntryTitle, nil
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
