// Package bootstrap selects and initializes exactly one task store backend.
//
// Replicated-backend startup is raced against a timeout; a timeout or any
// startup failure degrades to the local backend instead of surfacing an
// error. The decision is one-shot per process lifetime: once selected, the
// backend is cached and reused, and a later network recovery never upgrades a
// local session to replicated within the same run.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskmesh/taskmesh/internal/kv"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/store/localstore"
	"github.com/taskmesh/taskmesh/internal/store/meshstore"
)

// DefaultTimeout bounds replicated-backend startup before falling back.
const DefaultTimeout = 5 * time.Second

// Config holds bootstrapper configuration.
type Config struct {
	// RedisURL locates the replicated document store. Empty skips the race
	// and opens the local backend directly.
	RedisURL string

	// Timeout overrides DefaultTimeout for the selection race.
	Timeout time.Duration

	// KV is the durable key/value surface shared by both backends.
	KV kv.KV

	// PollInterval is passed through to the local backend's change poller.
	PollInterval time.Duration

	Logger *slog.Logger

	// OpenReplicated overrides replicated-backend construction. Tests inject
	// fakes here; nil uses the real document store.
	OpenReplicated func(ctx context.Context) (store.Store, error)
}

// Bootstrapper produces the process-wide store instance.
type Bootstrapper struct {
	cfg  Config
	once sync.Once
	st   store.Store
	err  error
}

// New creates a bootstrapper. No connection is attempted until Store.
func New(cfg Config) *Bootstrapper {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Bootstrapper{cfg: cfg}
}

// Store returns the selected backend, running the selection race on first
// call. Concurrent and repeated callers all receive the same instance; the
// race is never re-run.
func (b *Bootstrapper) Store(ctx context.Context) (store.Store, error) {
	b.once.Do(func() {
		b.st, b.err = b.selectBackend(ctx)
	})
	return b.st, b.err
}

func (b *Bootstrapper) selectBackend(ctx context.Context) (store.Store, error) {
	logger := b.cfg.Logger

	openReplicated := b.cfg.OpenReplicated
	if openReplicated == nil && b.cfg.RedisURL != "" {
		openReplicated = b.openMesh
	}

	if openReplicated != nil {
		if st, ok := b.race(ctx, openReplicated); ok {
			return st, nil
		}
		logger.Warn("replicated backend unavailable, falling back to local mode")
	}

	st, err := localstore.Open(ctx, b.cfg.KV, logger, localstore.Options{
		PollInterval: b.cfg.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return st, nil
}

// race runs replicated-backend construction against the timeout. A winner
// that arrives after the timeout already fired is drained and closed so the
// session stays on the backend that was actually selected.
func (b *Bootstrapper) race(ctx context.Context, open func(ctx context.Context) (store.Store, error)) (store.Store, bool) {
	logger := b.cfg.Logger

	type result struct {
		st  store.Store
		err error
	}
	ch := make(chan result, 1)

	openCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	go func() {
		st, err := open(openCtx)
		ch <- result{st: st, err: err}
	}()

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()

	discardLate := func() {
		cancel()
		go func() {
			if r := <-ch; r.st != nil {
				_ = r.st.Close()
			}
		}()
	}

	select {
	case r := <-ch:
		cancel()
		if r.err == nil {
			return r.st, true
		}
		logger.Warn("replicated backend failed to open", "error", r.err)
		return nil, false
	case <-timer.C:
		logger.Warn("replicated backend timed out", "timeout", b.cfg.Timeout)
		discardLate()
		return nil, false
	case <-ctx.Done():
		discardLate()
		return nil, false
	}
}

// openMesh is the real replicated-backend constructor: connect, verify the
// peer answers, then run the reopen-or-create protocol.
func (b *Bootstrapper) openMesh(ctx context.Context) (store.Store, error) {
	opt, err := redis.ParseURL(b.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document store URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("document store unreachable: %w", err)
	}

	st, err := meshstore.Open(ctx, client, b.cfg.KV, b.cfg.Logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return st, nil
}
