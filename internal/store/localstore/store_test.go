package localstore_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/internal/kv"
	"github.com/taskmesh/taskmesh/internal/kv/sqlitekv"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/store/localstore"
	"github.com/taskmesh/taskmesh/internal/task"
)

func openTestKV(t *testing.T) kv.KV {
	t.Helper()
	kvstore, err := sqlitekv.New(context.Background(), kv.Config{
		SQLitePath: filepath.Join(t.TempDir(), "kv.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { kvstore.Close() })
	return kvstore
}

func openTestStore(t *testing.T, kvstore kv.KV) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(context.Background(), kvstore, nil, localstore.Options{
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustNewTask(t *testing.T, title string) task.Task {
	t.Helper()
	tsk, err := task.New(title)
	require.NoError(t, err)
	return tsk
}

func TestOpen(t *testing.T) {
	s := openTestStore(t, openTestKV(t))

	assert.Equal(t, store.KindLocal, s.Kind())
	assert.NotEmpty(t, s.Address())
}

func TestSearch_EmptyStore(t *testing.T) {
	s := openTestStore(t, openTestKV(t))

	tasks, err := s.Search(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPutSearch_RoundTrip(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	tsk := mustNewTask(t, "Review PR")
	tsk.Description = "before standup"
	tsk.Tags = []string{"work"}
	require.NoError(t, s.Put(ctx, tsk))

	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, tsk, tasks[0])
}

func TestPut_Idempotent(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	tsk := mustNewTask(t, "same record twice")
	require.NoError(t, s.Put(ctx, tsk))
	require.NoError(t, s.Put(ctx, tsk))

	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, tsk, tasks[0])
}

func TestPut_UpsertReplacesByID(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	tsk := mustNewTask(t, "first title")
	require.NoError(t, s.Put(ctx, tsk))

	tsk.Title = "second title"
	tsk.Status = task.StatusNext
	require.NoError(t, s.Put(ctx, tsk))

	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "second title", tasks[0].Title)
	assert.Equal(t, task.StatusNext, tasks[0].Status)
}

func TestSearch_FilterByStatus(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	inbox := mustNewTask(t, "inbox item")
	done := mustNewTask(t, "done item")
	done.Status = task.StatusDone
	require.NoError(t, s.Put(ctx, inbox))
	require.NoError(t, s.Put(ctx, done))

	tasks, err := s.Search(ctx, store.Query{Statuses: []task.Status{task.StatusDone}})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, done.ID, tasks[0].ID)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	tsk := mustNewTask(t, "delete me")
	require.NoError(t, s.Put(ctx, tsk))
	require.NoError(t, s.Delete(ctx, tsk.ID))

	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestDelete_MissingIDIsNoOp(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	tsk := mustNewTask(t, "survivor")
	require.NoError(t, s.Put(ctx, tsk))
	require.NoError(t, s.Delete(ctx, "no-such-id"))

	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestSubscribe_IgnoresOwnWrites(t *testing.T) {
	s := openTestStore(t, openTestKV(t))
	ctx := context.Background()

	var fired atomic.Int32
	s.Subscribe(func() { fired.Add(1) })

	require.NoError(t, s.Put(ctx, mustNewTask(t, "self write")))

	// Give the poller several intervals to (incorrectly) report the write.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestSubscribe_ObservesOtherWriters(t *testing.T) {
	kvstore := openTestKV(t)
	observer := openTestStore(t, kvstore)
	writer := openTestStore(t, kvstore)
	ctx := context.Background()

	var fired atomic.Int32
	observer.Subscribe(func() { fired.Add(1) })

	require.NoError(t, writer.Put(ctx, mustNewTask(t, "remote write")))

	require.Eventually(t, func() bool {
		return fired.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	tasks, err := observer.Search(ctx, store.Query{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestAddress_UniquePerOpen(t *testing.T) {
	kvstore := openTestKV(t)
	a := openTestStore(t, kvstore)
	b := openTestStore(t, kvstore)

	assert.NotEqual(t, a.Address(), b.Address())
}

func TestSearch_SkipsCorruptRecords(t *testing.T) {
	kvstore := openTestKV(t)
	ctx := context.Background()

	blob := []byte(`[
		{"id":"ok","title":"keep","status":"inbox","createdAt":"1","tags":[]},
		{"id":"broken","title":"drop","status":"archived","createdAt":"2","tags":[]}
	]`)
	_, err := kvstore.Set(ctx, "taskmesh.store.tasks", blob)
	require.NoError(t, err)

	s := openTestStore(t, kvstore)
	tasks, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "ok", tasks[0].ID)
}
