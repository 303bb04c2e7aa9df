package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_AddUpdateRemove(t *testing.T) {
	d := New[string, string]()

	var added, updated, removed []string
	d.OnAdd(func(k, v string) { added = append(added, k+"="+v) })
	d.OnUpdate(func(k, v string) { updated = append(updated, k+"="+v) })
	d.OnRemove(func(k, v string) { removed = append(removed, k+"="+v) })

	d.DispatchAdd("k1", "v1")
	d.DispatchUpdate("k1", "v2")
	d.DispatchRemove("k1", "v2")

	assert.Equal(t, []string{"k1=v1"}, added)
	assert.Equal(t, []string{"k1=v2"}, updated)
	assert.Equal(t, []string{"k1=v2"}, removed)
}

func TestDispatcher_ClearFiresOnce(t *testing.T) {
	d := New[string, string]()
	n := 0
	d.OnClear(func() { n++ })

	d.DispatchClear()
	assert.Equal(t, 1, n)
}

func TestDispatcher_PanicIsSwallowed(t *testing.T) {
	d := New[string, string]()
	var ran bool

	d.OnAdd(func(k, v string) { panic("boom") })
	d.OnAdd(func(k, v string) { ran = true })

	assert.NotPanics(t, func() { d.DispatchAdd("k", "v") })
	assert.True(t, ran)
}

func TestDispatcher_HasBatchHandlers(t *testing.T) {
	d := New[string, string]()
	assert.False(t, d.HasBatchHandlers())

	d.OnBatchUpdate(func(entries []Entry[string, string]) {})
	assert.True(t, d.HasBatchHandlers())
}

func TestDispatcher_BatchEntries(t *testing.T) {
	d := New[string, string]()
	var got []Entry[string, string]
	d.OnBatchUpdate(func(entries []Entry[string, string]) { got = entries })

	d.DispatchBatch([]Entry[string, string]{{Key: "k1", Value: "v1"}})
	assert.Len(t, got, 1)
	assert.Equal(t, "k1", got[0].Key)
}

func TestDispatcher_ConcurrentRegistration(t *testing.T) {
	d := New[string, string]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.OnAdd(func(k, v string) {})
		}()
	}
	wg.Wait()
	assert.Len(t, d.snapshotAdd(), 50)
}

func TestNewVersion_Unique(t *testing.T) {
	a, err := NewVersion()
	assert.NoError(t, err)
	b, err := NewVersion()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
