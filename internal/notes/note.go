// Package notes stores notes and their version history in SQLite.
package notes

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Field limits.
const (
	MinTitleLen   = 3
	MaxTitleLen   = 50
	MinContentLen = 1
	MaxContentLen = 10000
)

// Note is a stored note.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Versions holds previous contents, newest first.
	Versions []Version `json:"versions"`
}

// Version is the content a note had before an update.
type Version struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Create holds the fields of a new note.
type Create struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Update holds the fields to change. Nil fields are left as they are.
type Update struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Content == nil
}

var (
	// ErrNotFound is returned when a note does not exist.
	ErrNotFound = errors.New("note not found")

	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid note")
)

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < MinTitleLen {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("must be at least %d characters long", MinTitleLen)}
	}
	if n > MaxTitleLen {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters long", MaxTitleLen)}
	}
	return nil
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < MinContentLen {
		return &ValidationError{Field: "content", Message: "must not be empty"}
	}
	if n > MaxContentLen {
		return &ValidationError{Field: "content", Message: fmt.Sprintf("must be at most %d characters long", MaxContentLen)}
	}
	return nil
}

// Validate checks the fields of a new note.
func (c Create) Validate() error {
	if err := validateTitle(c.Title); err != nil {
		return err
	}
	return validateContent(c.Content)
}

// Validate checks the fields that are set.
func (u Update) Validate() error {
	if u.Title != nil {
		if err := validateTitle(*u.Title); err != nil {
			return err
		}
	}
	if u.Content != nil {
		return validateContent(*u.Content)
	}
	return nil
}
