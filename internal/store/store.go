// Package store defines the backend-agnostic task store contract and the
// persisted record layout shared by every backend.
package store

import (
	"context"

	"github.com/taskmesh/taskmesh/internal/task"
)

// Kind distinguishes backend capability without exposing internals: only a
// replicated store's address is shareable for peer sync.
type Kind string

const (
	// KindReplicated is a store synchronized across peers with eventual
	// convergence.
	KindReplicated Kind = "replicated"
	// KindLocal is a durable single-process store with no replication.
	KindLocal Kind = "local"
)

func (k Kind) String() string { return string(k) }

// AddressKey is the fixed key/value key under which the replicated database
// address is persisted, so a restart reopens the same logical database.
const AddressKey = "taskmesh.store.address"

// Query is the search predicate. The zero value matches every record.
type Query struct {
	// Statuses restricts results to the given statuses when non-empty.
	Statuses []task.Status
}

// Match reports whether t satisfies the predicate.
func (q Query) Match(t task.Task) bool {
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// Store is the sole boundary between backends and their callers.
//
// Ordering of search results is the caller's responsibility; the interface
// guarantees none. Mutation methods are safe to invoke concurrently for
// distinct record ids; concurrent puts on the same id from the same process
// are last-call-wins by completion order.
type Store interface {
	// Search returns all records matching q. An empty Query returns every
	// record.
	Search(ctx context.Context, q Query) ([]task.Task, error)

	// Put upserts by id: an existing record is fully replaced, otherwise the
	// record is inserted.
	Put(ctx context.Context, t task.Task) error

	// Delete removes the record with the given id. Deleting a non-existent id
	// is a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// Subscribe registers a change listener invoked at least once after any
	// mutation that could affect query results. No payload is provided beyond
	// "something changed"; subscribers must re-query. A backend with no
	// change-notification source never invokes the callback.
	Subscribe(fn func())

	// Address returns a stable opaque identifier for the open database
	// instance.
	Address() string

	// Kind reports the backend capability.
	Kind() Kind

	Close() error
}
