// Package dispatch fans out Map Engine state changes to locally registered
// handlers. One Dispatcher belongs to exactly one engine instance; handlers
// registered on one engine are never visible to another, even for two
// engines open against the same map name.
package dispatch

import (
	"sync"

	"github.com/sirupsen/logrus"

	"distmap/rand"
)

var logger = logrus.WithField("component", "dispatch")

// Entry is one key/value pair as delivered to Add/Update/Remove/Expired/Batch
// handlers. Keys and values here are already decoded.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// AddHandler, UpdateHandler, RemoveHandler, ExpiredHandler fire for a single
// key. BatchHandler fires once per coalesced window with every key touched
// since the last batch. ClearHandler fires once per Clear call, with no
// per-key detail.
type (
	AddHandler[K comparable, V any]    func(key K, value V)
	UpdateHandler[K comparable, V any] func(key K, value V)
	RemoveHandler[K comparable, V any] func(key K, value V)
	ClearHandler                       func()
	BatchHandler[K comparable, V any]  func(entries []Entry[K, V])
	ExpiredHandler[K comparable, V any] func(key K, value V)
)

// Dispatcher owns six independent handler lists and the mutex that guards
// registration and snapshotting. Dispatch never holds the mutex while
// calling out to a handler: a handler that re-registers another handler on
// the same dispatcher must not deadlock.
type Dispatcher[K comparable, V any] struct {
	mu sync.Mutex

	onAdd     []AddHandler[K, V]
	onUpdate  []UpdateHandler[K, V]
	onRemove  []RemoveHandler[K, V]
	onClear   []ClearHandler
	onBatch   []BatchHandler[K, V]
	onExpired []ExpiredHandler[K, V]
}

// New builds an empty Dispatcher.
func New[K comparable, V any]() *Dispatcher[K, V] {
	return &Dispatcher[K, V]{}
}

func (d *Dispatcher[K, V]) OnAdd(h AddHandler[K, V]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAdd = append(d.onAdd, h)
}

func (d *Dispatcher[K, V]) OnUpdate(h UpdateHandler[K, V]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUpdate = append(d.onUpdate, h)
}

func (d *Dispatcher[K, V]) OnRemove(h RemoveHandler[K, V]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onRemove = append(d.onRemove, h)
}

func (d *Dispatcher[K, V]) OnClear(h ClearHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClear = append(d.onClear, h)
}

func (d *Dispatcher[K, V]) OnBatchUpdate(h BatchHandler[K, V]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onBatch = append(d.onBatch, h)
}

func (d *Dispatcher[K, V]) OnExpired(h ExpiredHandler[K, V]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onExpired = append(d.onExpired, h)
}

// HasBatchHandlers reports whether the Batch Sweeper has any reason to run
// at all; the sweeper is skipped entirely when this is false.
func (d *Dispatcher[K, V]) HasBatchHandlers() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.onBatch) > 0
}

func (d *Dispatcher[K, V]) snapshotAdd() []AddHandler[K, V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]AddHandler[K, V](nil), d.onAdd...)
}

func (d *Dispatcher[K, V]) snapshotUpdate() []UpdateHandler[K, V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]UpdateHandler[K, V](nil), d.onUpdate...)
}

func (d *Dispatcher[K, V]) snapshotRemove() []RemoveHandler[K, V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RemoveHandler[K, V](nil), d.onRemove...)
}

func (d *Dispatcher[K, V]) snapshotClear() []ClearHandler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ClearHandler(nil), d.onClear...)
}

func (d *Dispatcher[K, V]) snapshotBatch() []BatchHandler[K, V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]BatchHandler[K, V](nil), d.onBatch...)
}

func (d *Dispatcher[K, V]) snapshotExpired() []ExpiredHandler[K, V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ExpiredHandler[K, V](nil), d.onExpired...)
}

// safeCall invokes h, swallowing any panic so that one bad handler cannot
// block the rest of the snapshot from running.
func safeCall(name string, h func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"handler": name,
				"panic":   r,
			}).Warn("dispatch: handler panicked, discarding")
		}
	}()
	h()
}

func (d *Dispatcher[K, V]) DispatchAdd(key K, value V) {
	for _, h := range d.snapshotAdd() {
		h := h
		safeCall("OnAdd", func() { h(key, value) })
	}
}

func (d *Dispatcher[K, V]) DispatchUpdate(key K, value V) {
	for _, h := range d.snapshotUpdate() {
		h := h
		safeCall("OnUpdate", func() { h(key, value) })
	}
}

func (d *Dispatcher[K, V]) DispatchRemove(key K, value V) {
	for _, h := range d.snapshotRemove() {
		h := h
		safeCall("OnRemove", func() { h(key, value) })
	}
}

func (d *Dispatcher[K, V]) DispatchClear() {
	for _, h := range d.snapshotClear() {
		h := h
		safeCall("OnClear", func() { h() })
	}
}

func (d *Dispatcher[K, V]) DispatchBatch(entries []Entry[K, V]) {
	for _, h := range d.snapshotBatch() {
		h := h
		safeCall("OnBatchUpdate", func() { h(entries) })
	}
}

func (d *Dispatcher[K, V]) DispatchExpired(key K, value V) {
	for _, h := range d.snapshotExpired() {
		h := h
		safeCall("OnExpired", func() { h(key, value) })
	}
}

// NewVersion mints an opaque 128-bit version token for a Set. 22 characters
// of the rand package's 62-letter alphanumeric alphabet carry about 131 bits
// of entropy and keep the token printable for direct storage as a hash value.
func NewVersion() (string, error) {
	return rand.GenerateRandomBytes(22)
}
