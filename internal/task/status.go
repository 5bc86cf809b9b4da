package task

import "fmt"

// Status represents the task lifecycle state.
type Status string

const (
	StatusInbox   Status = "inbox"
	StatusNext    Status = "next"
	StatusWaiting Status = "waiting"
	StatusSomeday Status = "someday"
	StatusDone    Status = "done"
	StatusTrash   Status = "trash"
)

// Statuses returns every member of the closed status set, in lifecycle order.
func Statuses() []Status {
	return []Status{StatusInbox, StatusNext, StatusWaiting, StatusSomeday, StatusDone, StatusTrash}
}

// ParseStatus validates a raw string against the closed status set.
// Any value outside the set is a data-integrity error.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInbox, StatusNext, StatusWaiting, StatusSomeday, StatusDone, StatusTrash:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// IsValid reports whether the status is a member of the closed set.
func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) String() string { return string(s) }

// transitions is the legal-transition table. The store itself never enforces
// it; callers apply it as policy before issuing a Put.
var transitions = map[Status][]Status{
	StatusInbox:   {StatusNext, StatusWaiting, StatusSomeday, StatusDone, StatusTrash},
	StatusNext:    {StatusWaiting, StatusDone, StatusTrash},
	StatusWaiting: {StatusDone, StatusTrash},
	StatusSomeday: {StatusDone, StatusTrash},
	StatusDone:    {StatusInbox, StatusTrash},
	StatusTrash:   {StatusInbox},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Hard deletion is a store operation, not a transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LegalTransitions returns the statuses reachable from s in one step.
func (s Status) LegalTransitions() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
