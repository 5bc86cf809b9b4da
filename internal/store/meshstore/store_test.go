package meshstore_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/internal/kv"
	"github.com/taskmesh/taskmesh/internal/kv/sqlitekv"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/store/meshstore"
	"github.com/taskmesh/taskmesh/internal/task"
)

// These tests need a reachable Redis instance and are skipped unless
// TASKMESH_TEST_REDIS_URL is set, e.g.
//
//	TASKMESH_TEST_REDIS_URL=redis://localhost:6379/15 go test ./internal/store/meshstore/

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TASKMESH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TASKMESH_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func openTestKV(t *testing.T, dir string) kv.KV {
	t.Helper()
	kvstore, err := sqlitekv.New(context.Background(), kv.Config{
		SQLitePath: filepath.Join(dir, "kv.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { kvstore.Close() })
	return kvstore
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	kvstore := openTestKV(t, t.TempDir())
	ctx := context.Background()

	s, err := meshstore.Open(ctx, newTestClient(t), kvstore, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	assert.Equal(t, store.KindReplicated, s.Kind())
	assert.NotEmpty(t, s.Address())

	// The address is persisted for the next run.
	stored, ok, err := kvstore.Get(ctx, store.AddressKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Address(), string(stored))
}

func TestOpen_ReopensPersistedDatabase(t *testing.T) {
	dir := t.TempDir()
	kvstore := openTestKV(t, dir)
	ctx := context.Background()

	first, err := meshstore.Open(ctx, newTestClient(t), kvstore, nil)
	require.NoError(t, err)
	address := first.Address()

	tsk, err := task.New("persisted across restarts")
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, tsk))
	require.NoError(t, first.Close())

	second, err := meshstore.Open(ctx, newTestClient(t), kvstore, nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	assert.Equal(t, address, second.Address())

	tasks, err := second.Search(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, tsk.ID, tasks[0].ID)
}

func TestPutSearchDelete(t *testing.T) {
	kvstore := openTestKV(t, t.TempDir())
	ctx := context.Background()

	s, err := meshstore.Open(ctx, newTestClient(t), kvstore, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tsk, err := task.New("replicated record")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, tsk))

	tsk.Status = task.StatusNext
	require.NoError(t, s.Put(ctx, tsk))

	tasks, err := s.Search(ctx, store.Query{Statuses: []task.Status{task.StatusNext}})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, tsk, tasks[0])

	require.NoError(t, s.Delete(ctx, tsk.ID))
	require.NoError(t, s.Delete(ctx, tsk.ID)) // missing id is a no-op

	tasks, err = s.Search(ctx, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSubscribe_FiresOnMutation(t *testing.T) {
	kvstore := openTestKV(t, t.TempDir())
	ctx := context.Background()

	s, err := meshstore.Open(ctx, newTestClient(t), kvstore, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var fired atomic.Int32
	s.Subscribe(func() { fired.Add(1) })

	tsk, err := task.New("broadcast me")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, tsk))

	require.Eventually(t, func() bool {
		return fired.Load() > 0
	}, 5*time.Second, 20*time.Millisecond)
}
