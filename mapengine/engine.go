// Package mapengine is the stateful object representing one named,
// typed map over a remote Redis-compatible store. It owns the
// Expiration Sweeper, the Batch Sweeper, and the Notification
// Dispatcher for its map name.
//
// Invariants carried from construction through every operation:
//
//   - After a successful Set, the key is present in the data hash, the
//     versions hash, and timestamps-sorted.
//   - Remove, expiration, and Clear delete the key from data, both
//     timestamp structures, access-time (if TTL enabled), and versions.
//     Orphans are tolerated and cleaned up by the next sweeper pass.
//   - Two Sets of the same key from one process never produce a
//     decreasing timestamp.
//   - The last-batch cursor only ever increases.
//   - A freshly constructed engine observes any persisted TTL policy and
//     starts its Expiration Sweeper within one sweeper period.
//   - Enumeration of map names filters out names containing ":__meta:".
package mapengine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"distmap/channel"
	"distmap/codec"
	"distmap/dispatch"
	"distmap/keyser"
	"distmap/mapstore"
)

const (
	sweeperPeriod   = time.Second
	pageChunkSize   = 100
	scanChunkSize   = 1000
	migrationLockTTL = 30 * time.Second
)

var logger = logrus.WithField("component", "mapengine")

// Engine is one named map, parameterized by key type K and value type V.
// It is safe for concurrent use by multiple goroutines.
type Engine[K comparable, V any] struct {
	name  string
	store *mapstore.Client

	keySer   keyser.Serializer[K]
	valCodec codec.Codec[V]

	batchWait time.Duration

	dispatcher *dispatch.Dispatcher[K, V]

	ttlMu     sync.Mutex
	ttl       time.Duration
	ttlActive bool

	stopCh   chan struct{}
	shutdown <-chan struct{}
	closeOnce sync.Once

	expMu       sync.Mutex
	expRunning  bool
	expStopCh   chan struct{}
	expDone     chan struct{}

	batchDone chan struct{}
}

// Option configures an Engine at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	batchWait time.Duration
}

// WithBatchWait overrides the default batch window. Default is 5s.
func WithBatchWait(d time.Duration) Option {
	return func(o *engineOptions) { o.batchWait = d }
}

// New constructs an Engine for map name using store as the backing
// connection, keySer/valCodec as the (de)serialization strategy. It
// re-hydrates any persisted TTL policy from the store at construction
// time and, if one is found active, starts the Expiration Sweeper
// immediately. The Batch Sweeper always starts; each of its passes is
// a no-op unless an OnBatchUpdate handler is registered.
func New[K comparable, V any](
	ctx context.Context,
	store *mapstore.Client,
	name string,
	keySer keyser.Serializer[K],
	valCodec codec.Codec[V],
	opts ...Option,
) (*Engine[K, V], error) {
	o := engineOptions{batchWait: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine[K, V]{
		name:       name,
		store:      store,
		keySer:     keySer,
		valCodec:   valCodec,
		batchWait:  o.batchWait,
		dispatcher: dispatch.New[K, V](),
		stopCh:     make(chan struct{}),
	}
	e.shutdown = channel.Or(e.stopCh, ctx.Done())

	ttl, active, err := e.loadTTLPolicy(ctx)
	if err != nil {
		return nil, err
	}
	e.ttl = ttl
	e.ttlActive = active

	e.batchDone = make(chan struct{})
	go e.runBatchSweeper()

	if active {
		e.startExpirationSweeperLocked()
	}

	return e, nil
}

// Name is the map's registered name, used by Registry's type-erased view.
func (e *Engine[K, V]) Name() string { return e.name }

// KeyCodec exposes the key serializer in use, read-only.
func (e *Engine[K, V]) KeyCodec() keyser.Serializer[K] { return e.keySer }

// ValueCodec exposes the value codec in use, read-only.
func (e *Engine[K, V]) ValueCodec() codec.Codec[V] { return e.valCodec }

// Close stops both sweepers cooperatively and returns once they have
// exited. It is idempotent. ctx bounds how long Close waits for the
// sweepers to reach their next natural boundary; it does not forcibly
// cancel a sweeper mid-pass.
func (e *Engine[K, V]) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		close(e.stopCh)
	})

	e.expMu.Lock()
	expDone := e.expDone
	e.expMu.Unlock()

	wait := func(done <-chan struct{}) error {
		if done == nil {
			return nil
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mapengine: close timed out waiting for sweeper")
		}
	}

	if err := wait(e.batchDone); err != nil {
		return err
	}
	return wait(expDone)
}

func (e *Engine[K, V]) loadTTLPolicy(ctx context.Context) (time.Duration, bool, error) {
	raw, ok, err := e.store.StringGet(ctx, ttlConfigKey(e.name))
	if err != nil {
		return 0, false, errors.Wrapf(err, "mapengine: load ttl policy for %s", e.name)
	}
	if !ok {
		return 0, false, nil
	}
	seconds, err := parseSeconds(raw)
	if err != nil {
		return 0, false, errors.Wrapf(err, "mapengine: parse ttl policy for %s", e.name)
	}
	return seconds, true, nil
}
