// Package localstore implements the task store on the durable key/value
// surface, confined to one process with no replication.
//
// The whole collection is serialized as a single blob and rewritten on every
// mutation. Record counts are small; a larger-scale implementation would
// index by id instead, but the external contract would not change.
package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmesh/taskmesh/internal/kv"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/task"
)

// dataKey is the fixed key holding the serialized task collection.
const dataKey = "taskmesh.store.tasks"

// DefaultPollInterval is how often the store checks the key/value revision
// for mutations made by other processes.
const DefaultPollInterval = 500 * time.Millisecond

// Options configures a local store.
type Options struct {
	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration
}

// Store is a durable single-process implementation of store.Store.
//
// The key/value revision signal only observes mutations made by other
// processes: the store records the revision produced by its own writes, so
// Subscribe callbacks never fire for self-originated changes. Callers must
// refresh unconditionally after their own Put/Delete.
type Store struct {
	kv      kv.KV
	logger  *slog.Logger
	address string

	mu      sync.Mutex
	lastRev int64
	subs    []func()

	cancel context.CancelFunc
	done   chan struct{}
}

// Open creates a local store over the given key/value surface and starts the
// cross-process change poller.
func Open(ctx context.Context, kvstore kv.KV, logger *slog.Logger, opts Options) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	rev, err := kvstore.Revision(ctx, dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read task collection revision: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		kv:      kvstore,
		logger:  logger,
		address: "local-" + uuid.NewString()[:8],
		lastRev: rev,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.poll(pollCtx, interval)

	logger.Info("local store opened", "address", s.address)
	return s, nil
}

// Search returns all records matching q.
func (s *Store) Search(ctx context.Context, q store.Query) ([]task.Task, error) {
	tasks, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Put upserts by id, rewriting the whole collection.
func (s *Store) Put(ctx context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, t)
	}

	return s.save(ctx, tasks)
}

// Delete removes the record with the given id; a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return nil
	}

	return s.save(ctx, kept)
}

// Subscribe registers a listener for mutations made by other processes.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Address returns the opaque identifier for this store instance. Local
// addresses are random per open and not shareable for peer sync.
func (s *Store) Address() string { return s.address }

// Kind reports the backend capability.
func (s *Store) Kind() store.Kind { return store.KindLocal }

// Close stops the change poller. The underlying key/value store is owned by
// the caller and stays open.
func (s *Store) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Store) load(ctx context.Context) ([]task.Task, error) {
	data, ok, err := s.kv.Get(ctx, dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read task collection: %w", err)
	}
	if !ok {
		return nil, nil
	}

	tasks, err := store.DecodeTasks(data, func(err error) {
		s.logger.Warn("skipping corrupt task record", "error", err)
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// save rewrites the collection and records the resulting revision so the
// poller does not report the write back to this process.
func (s *Store) save(ctx context.Context, tasks []task.Task) error {
	data, err := store.EncodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode task collection: %w", err)
	}

	rev, err := s.kv.Set(ctx, dataKey, data)
	if err != nil {
		return fmt.Errorf("failed to write task collection: %w", err)
	}

	s.lastRev = rev
	return nil
}

func (s *Store) poll(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rev, err := s.kv.Revision(ctx, dataKey)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("failed to poll task collection revision", "error", err)
			continue
		}

		s.mu.Lock()
		changed := rev != s.lastRev
		if changed {
			s.lastRev = rev
		}
		subs := make([]func(), len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()

		if changed {
			for _, fn := range subs {
				fn()
			}
		}
	}
}
