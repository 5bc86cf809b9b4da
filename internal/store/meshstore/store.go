// Package meshstore implements the task store on a replicated document
// store, reachable by multiple peers with eventual convergence.
//
// Records live in a hash keyed by task id under a per-database address
// namespace; change notifications travel over a pub/sub channel and surface
// both locally-originated and remotely-received mutations. Duplicate-id
// resolution (last-writer-wins) belongs to the document store, not this
// package.
package meshstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/taskmesh/taskmesh/internal/kv"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/task"
)

// ErrUnavailable is returned when the circuit breaker has opened because the
// document store stopped answering; callers fast-fail instead of stalling.
var ErrUnavailable = errors.New("replicated store unavailable")

const keyPrefix = "taskmesh:db:"

// Store is a multi-peer implementation of store.Store.
type Store struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
	address string

	mu   sync.Mutex
	subs []func()

	pubsub *redis.PubSub
	done   chan struct{}
}

// Open connects to the document store, reopening the database persisted under
// store.AddressKey when possible and creating a fresh one otherwise. The
// winning address is written back, overwriting any stale value. Open takes
// ownership of the client.
func Open(ctx context.Context, client *redis.Client, kvstore kv.KV, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	address, err := resolveAddress(ctx, client, kvstore, logger)
	if err != nil {
		return nil, err
	}

	s := &Store{
		client:  client,
		logger:  logger,
		address: address,
		done:    make(chan struct{}),
	}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "meshstore",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"store", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	s.pubsub = client.Subscribe(context.Background(), s.changeChannel())
	go s.listen()

	logger.Info("replicated store opened", "address", address)
	return s, nil
}

// resolveAddress runs the reopen-or-create protocol. Reading, opening, and
// writing back the persisted address is an exclusive sequential step; it is
// never run concurrently with itself.
func resolveAddress(ctx context.Context, client *redis.Client, kvstore kv.KV, logger *slog.Logger) (string, error) {
	var address string

	stored, ok, err := kvstore.Get(ctx, store.AddressKey)
	if err != nil {
		return "", fmt.Errorf("failed to read persisted address: %w", err)
	}

	if ok {
		candidate := string(stored)
		exists, err := client.Exists(ctx, keyPrefix+candidate).Result()
		if err != nil {
			return "", fmt.Errorf("failed to reopen database %s: %w", candidate, err)
		}
		if exists == 1 {
			address = candidate
		} else {
			logger.Warn("persisted address no longer resolves, creating a new database",
				"address", candidate,
			)
		}
	}

	if address == "" {
		address = "mesh-" + uuid.NewString()
		created := time.Now().UTC().Format(time.RFC3339)
		if err := client.Set(ctx, keyPrefix+address, created, 0).Err(); err != nil {
			return "", fmt.Errorf("failed to create database: %w", err)
		}
	}

	if _, err := kvstore.Set(ctx, store.AddressKey, []byte(address)); err != nil {
		return "", fmt.Errorf("failed to persist address: %w", err)
	}

	return address, nil
}

// Search queries the shared replica and normalizes each record. Corrupt
// records fail individually and are skipped.
func (s *Store) Search(ctx context.Context, q store.Query) ([]task.Task, error) {
	values, err := s.execute(func() (any, error) {
		return s.client.HVals(ctx, s.tasksKey()).Result()
	})
	if err != nil {
		return nil, err
	}

	raw := values.([]string)
	tasks := make([]task.Task, 0, len(raw))
	for _, v := range raw {
		t, err := store.DecodeTask([]byte(v))
		if err != nil {
			s.logger.Warn("skipping corrupt task record", "error", err)
			continue
		}
		if q.Match(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Put upserts by id. The caller is blocked on local durability only;
// propagation to peers and the change broadcast are asynchronous.
func (s *Store) Put(ctx context.Context, t task.Task) error {
	data, err := store.EncodeTask(t)
	if err != nil {
		return err
	}

	_, err = s.execute(func() (any, error) {
		return nil, s.client.HSet(ctx, s.tasksKey(), t.ID, data).Err()
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, t.ID)
	return nil
}

// Delete removes the record with the given id; a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.client.HDel(ctx, s.tasksKey(), id).Err()
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, id)
	return nil
}

// Subscribe registers a listener for both self- and remote-originated
// mutations.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Address returns the database address, shareable with peers.
func (s *Store) Address() string { return s.address }

// Kind reports the backend capability.
func (s *Store) Kind() store.Kind { return store.KindReplicated }

// Close tears down the change subscription and the client connection.
func (s *Store) Close() error {
	if err := s.pubsub.Close(); err != nil {
		s.logger.Warn("error closing change subscription", "error", err)
	}
	<-s.done
	return s.client.Close()
}

func (s *Store) tasksKey() string      { return keyPrefix + s.address + ":tasks" }
func (s *Store) changeChannel() string { return keyPrefix + s.address + ":changes" }

// execute runs an operation behind the circuit breaker so a dead peer
// fast-fails instead of stalling every refresh.
func (s *Store) execute(fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return result, err
}

// broadcast publishes a change message. Failure to notify peers never fails
// the mutation; the write is already durable.
func (s *Store) broadcast(ctx context.Context, id string) {
	if err := s.client.Publish(ctx, s.changeChannel(), id).Err(); err != nil {
		s.logger.Warn("failed to broadcast change", "id", id, "error", err)
	}
}

func (s *Store) listen() {
	defer close(s.done)

	for range s.pubsub.Channel() {
		s.mu.Lock()
		subs := make([]func(), len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()

		for _, fn := range subs {
			fn()
		}
	}
}
