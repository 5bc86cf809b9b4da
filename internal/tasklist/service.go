// Package tasklist is the consumer-facing read path over the task store: it
// fetches, normalizes, and orders records, re-running the pipeline whenever
// the store reports a change.
package tasklist

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/taskmesh/taskmesh/internal/eventbus"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/task"
)

// Routing keys for relayed change events.
const (
	RoutingKeyCreated = "task.created"
	RoutingKeyUpdated = "task.updated"
	RoutingKeyDeleted = "task.deleted"
)

// Service orchestrates queries and refreshes against the selected store.
//
// Mutations apply an optimistic in-memory projection before the backend call,
// so the published list updates ahead of the round-trip. A failed backend
// write leaves the projection in place and is logged only; the view may
// diverge from durable state until the next successful refresh. Rollback and
// retry were considered and deliberately left out, matching the optimistic
// no-rollback contract.
type Service struct {
	store  store.Store
	bus    eventbus.Publisher
	logger *slog.Logger

	mu        sync.Mutex
	tasks     []task.Task
	listeners []func([]task.Task)
}

// New creates a service over the given store. The publisher relays mutation
// events to external consumers and may be a noop.
func New(st store.Store, bus eventbus.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = eventbus.NewNoopPublisher(logger)
	}
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger,
	}
}

// Start subscribes to store change notifications and performs the initial
// refresh. The store's own signal never covers self-originated writes, so the
// service also refreshes unconditionally after each successful mutation it
// issues; it never relies on the subscription alone.
func (s *Service) Start(ctx context.Context) error {
	s.store.Subscribe(func() {
		s.Refresh(ctx)
	})
	return s.Refresh(ctx)
}

// Refresh re-runs the fetch-normalize-sort pipeline and republishes the
// result. On a read failure the previously published list stays in place and
// no retry is scheduled.
func (s *Service) Refresh(ctx context.Context) error {
	results, err := s.store.Search(ctx, store.Query{})
	if err != nil {
		s.logger.Error("failed to search store, keeping previous list", "error", err)
		return err
	}

	sortTasks(results)

	s.mu.Lock()
	s.tasks = results
	s.mu.Unlock()

	s.notify()
	return nil
}

// Tasks returns the current published sequence, newest first.
func (s *Service) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// OnChange registers a listener receiving each republished sequence.
func (s *Service) OnChange(fn func([]task.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Add creates a task in the inbox and persists it. The returned task is the
// optimistic projection; a backend failure is logged, not returned.
func (s *Service) Add(ctx context.Context, title, description string, tags []string) (task.Task, error) {
	t, err := task.New(title)
	if err != nil {
		return task.Task{}, err
	}
	t.Description = strings.TrimSpace(description)
	if len(tags) > 0 {
		t.Tags = append([]string{}, tags...)
	}

	s.mu.Lock()
	s.tasks = append([]task.Task{t}, s.tasks...)
	s.mu.Unlock()
	s.notify()

	if err := s.store.Put(ctx, t); err != nil {
		s.logger.Error("failed to save task", "id", t.ID, "error", err)
		return t, nil
	}

	s.relay(ctx, RoutingKeyCreated, t)
	_ = s.Refresh(ctx)
	return t, nil
}

// Update replaces the stored record with t (full-record replace by id). The
// record contract is validated; backend failure is logged, not returned.
func (s *Service) Update(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.tasks {
		if s.tasks[i].ID == t.ID {
			s.tasks[i] = t
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	if err := s.store.Put(ctx, t); err != nil {
		s.logger.Error("failed to update task", "id", t.ID, "error", err)
		return nil
	}

	s.relay(ctx, RoutingKeyUpdated, t)
	_ = s.Refresh(ctx)
	return nil
}

// Remove permanently deletes the record. Backend failure is logged, not
// returned.
func (s *Service) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()
	s.notify()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete task", "id", id, "error", err)
		return
	}

	s.relay(ctx, RoutingKeyDeleted, task.Task{ID: id})
	_ = s.Refresh(ctx)
}

// Store exposes the underlying store for capability checks (address, kind).
func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) notify() {
	s.mu.Lock()
	listeners := make([]func([]task.Task), len(s.listeners))
	copy(listeners, s.listeners)
	snapshot := make([]task.Task, len(s.tasks))
	copy(snapshot, s.tasks)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Service) relay(ctx context.Context, routingKey string, t task.Task) {
	payload, err := store.EncodeTask(t)
	if err != nil {
		s.logger.Warn("failed to encode change event", "id", t.ID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("failed to relay change event", "routing_key", routingKey, "error", err)
	}
}

// sortTasks orders newest first. The sort is stable: equal timestamps keep
// their input order.
func sortTasks(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})
}

// FilterByView applies the status-view rule: the done and trash views show
// only themselves, and every other view excludes done and trash.
func FilterByView(tasks []task.Task, view task.Status) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		switch view {
		case task.StatusDone, task.StatusTrash:
			if t.Status == view {
				out = append(out, t)
			}
		default:
			if t.Status == task.StatusDone || t.Status == task.StatusTrash {
				continue
			}
			if t.Status == view {
				out = append(out, t)
			}
		}
	}
	return out
}
