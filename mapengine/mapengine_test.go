package mapengine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distmap/codec"
	"distmap/dispatch"
	"distmap/keyser"
	"distmap/mapstore"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine[string, string], *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client, err := mapstore.Dial(context.Background(), mapstore.Config{
		Addr:         srv.Addr(),
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	eng, err := New[string, string](context.Background(), client, "alpha", keyser.NewJSON[string](), codec.NewJSON[string](), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = eng.Close(ctx)
	})

	return eng, srv
}

func TestEngine_BasicSetGet(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Set(ctx, "k1", "v1"))

	v, ok, err := eng.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	count, err := eng.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	contains, err := eng.ContainsKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, contains)
}

func TestEngine_AddThenUpdateDispatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	var added, updated []string
	eng.OnAdd(func(k, v string) { added = append(added, k+"="+v) })
	eng.OnUpdate(func(k, v string) { updated = append(updated, k+"="+v) })

	require.NoError(t, eng.Set(ctx, "k1", "v1"))
	require.NoError(t, eng.Set(ctx, "k1", "v2"))

	assert.Equal(t, []string{"k1=v1"}, added)
	assert.Equal(t, []string{"k1=v2"}, updated)
}

func TestEngine_Remove(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	var removed []string
	eng.OnRemove(func(k, v string) { removed = append(removed, k+"="+v) })

	require.NoError(t, eng.Set(ctx, "k1", "v1"))

	ok, err := eng.Remove(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"k1=v1"}, removed)

	_, ok, err = eng.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = eng.Remove(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_Clear(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	var cleared int
	eng.OnClear(func() { cleared++ })

	require.NoError(t, eng.Set(ctx, "k1", "v1"))
	require.NoError(t, eng.Set(ctx, "k2", "v2"))

	require.NoError(t, eng.Clear(ctx))
	assert.Equal(t, 1, cleared)

	count, err := eng.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestEngine_TTLExpiration(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.SetItemExpiration(ctx, 1*time.Second, true))

	var mu sync.Mutex
	var expired []string
	eng.OnExpired(func(k, v string) {
		mu.Lock()
		expired = append(expired, k+"="+v)
		mu.Unlock()
	})

	require.NoError(t, eng.Set(ctx, "k1", "v1"))

	time.Sleep(3 * time.Second)

	mu.Lock()
	got := append([]string(nil), expired...)
	mu.Unlock()
	assert.Equal(t, []string{"k1=v1"}, got)

	_, ok, err := eng.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_TTLRefreshByAccess(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.SetItemExpiration(ctx, 2*time.Second, true))
	require.NoError(t, eng.Set(ctx, "k1", "v1"))

	time.Sleep(1500 * time.Millisecond)
	_, ok, err := eng.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1 * time.Second)
	_, ok, err = eng.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_BatchUpdate(t *testing.T) {
	eng, _ := newTestEngine(t, WithBatchWait(1*time.Second))
	ctx := context.Background()

	var mu sync.Mutex
	var batches [][]dispatch.Entry[string, string]
	eng.OnBatchUpdate(func(entries []dispatch.Entry[string, string]) {
		mu.Lock()
		batches = append(batches, entries)
		mu.Unlock()
	})

	require.NoError(t, eng.Set(ctx, "k1", "v1"))
	require.NoError(t, eng.Set(ctx, "k1", "v2"))

	time.Sleep(3 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "k1", batches[0][0].Key)
	assert.Equal(t, "v2", batches[0][0].Value)
}

func TestEngine_BatchUpdate_QuiescenceWindow(t *testing.T) {
	eng, _ := newTestEngine(t, WithBatchWait(3*time.Second))
	ctx := context.Background()

	var mu sync.Mutex
	var batches [][]dispatch.Entry[string, string]
	eng.OnBatchUpdate(func(entries []dispatch.Entry[string, string]) {
		mu.Lock()
		batches = append(batches, entries)
		mu.Unlock()
	})

	require.NoError(t, eng.Set(ctx, "k1", "v1"))

	time.Sleep(1500 * time.Millisecond)
	mu.Lock()
	got := len(batches)
	mu.Unlock()
	assert.Equal(t, 0, got, "batch fired before batchWait elapsed")

	time.Sleep(3 * time.Second)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "k1", batches[0][0].Key)
}

func TestEngine_BatchFallbackLegacyHash(t *testing.T) {
	eng, _ := newTestEngine(t, WithBatchWait(1*time.Second))
	ctx := context.Background()

	var mu sync.Mutex
	var batches [][]dispatch.Entry[string, string]
	eng.OnBatchUpdate(func(entries []dispatch.Entry[string, string]) {
		mu.Lock()
		batches = append(batches, entries)
		mu.Unlock()
	})

	require.NoError(t, eng.Set(ctx, "k1", "v1"))
	require.NoError(t, eng.store.DeleteKeys(ctx, timestampsSortedKey(eng.name)))

	time.Sleep(3 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Equal(t, "k1", batches[0][0].Key)
}

func TestEngine_MigrationIdempotence(t *testing.T) {
	eng, srv := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, eng.Set(ctx, fmt.Sprintf("k%d", i), "v"))
	}

	status, err := eng.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.TimestampsCount, status.TimestampsSortedCount)

	srv.Del(timestampsSortedKey("alpha"))

	status, err = eng.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.TimestampsSortedCount)

	require.NoError(t, eng.MigrateTimestampsToSortedSet(ctx))
	status, err = eng.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.TimestampsCount, status.TimestampsSortedCount)

	require.NoError(t, eng.MigrateTimestampsToSortedSet(ctx))
	status2, err := eng.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.TimestampsSortedCount, status2.TimestampsSortedCount)
}

func TestEngine_Pagination(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		require.NoError(t, eng.Set(ctx, fmt.Sprintf("k%02d", i), fmt.Sprintf("v%02d", i)))
	}

	res, err := eng.GetEntriesPaged(ctx, 3, 10, "")
	require.NoError(t, err)
	assert.Len(t, res.Entries, 10)
	assert.Equal(t, int64(55), res.TotalCount)
	assert.Equal(t, int64(6), res.TotalPages)
	assert.True(t, res.HasNext)
	assert.True(t, res.HasPrevious)

	res, err = eng.GetEntriesPaged(ctx, 6, 10, "")
	require.NoError(t, err)
	assert.Len(t, res.Entries, 5)
	assert.False(t, res.HasNext)
}

func TestEngine_Streaming(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, eng.Set(ctx, fmt.Sprintf("k%02d", i), "v"))
	}

	var keys []string
	err := eng.GetAllKeysStream(ctx, func(k string) error {
		keys = append(keys, k)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, keys, 30)

	var pairs int
	err = eng.GetAllEntriesStream(ctx, func(k, v string) error {
		pairs++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, pairs)
}

func TestEngine_EntriesChan(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, eng.Set(ctx, fmt.Sprintf("k%02d", i), "v"))
	}

	var got int
	for range eng.EntriesChan(ctx) {
		got++
	}
	assert.Equal(t, 12, got)
}

func TestEngine_EntriesChan_CancelStopsEarly(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 50; i++ {
		require.NoError(t, eng.Set(context.Background(), fmt.Sprintf("k%02d", i), "v"))
	}

	ch := eng.EntriesChan(ctx)
	<-ch
	cancel()

	for range ch {
	}
}
