// Package task defines the Task record and its lifecycle state machine.
package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle    = errors.New("task title cannot be empty")
	ErrInvalidStatus = errors.New("invalid task status")
)

// Task is the sole persisted entity: a flat record with value-type fields.
// ID is assigned exactly once at creation and never changes. CreatedAt is the
// canonical sort key and is never reassigned on update.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	CreatedAt   uint64 // milliseconds since epoch
	Tags        []string
}

// New creates a task in the inbox with a fresh id and creation timestamp.
func New(title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	return Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    StatusInbox,
		CreatedAt: uint64(time.Now().UnixMilli()),
		Tags:      []string{},
	}, nil
}

// Clone returns a deep copy. Tasks share no internal object identity, so a
// clone is safe to mutate independently of the original.
func (t Task) Clone() Task {
	out := t
	if t.Tags != nil {
		out.Tags = make([]string, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	return out
}

// Validate checks the record's field contract.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}
