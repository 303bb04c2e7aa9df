// Package registry owns the process-wide collection of named Map
// Engines. It does not discover map names from the store; it only
// knows about names explicitly constructed in this process.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"distmap/backoff"
	"distmap/codec"
	"distmap/keyser"
	"distmap/mapengine"
	"distmap/mapstore"
)

var logger = logrus.WithField("component", "registry")

type entry struct {
	engine any
	raw    RawMap
	closer func(context.Context) error
}

// Registry is safe for concurrent use.
type Registry struct {
	store     *mapstore.Client
	batchWait time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

// New builds an empty Registry sharing store across every map it
// constructs and using batchWait as the default batch window for new
// engines — the remote store connection is shared across every map
// registered here.
func New(store *mapstore.Client, batchWait time.Duration) *Registry {
	return &Registry{
		store:     store,
		batchWait: batchWait,
		entries:   make(map[string]entry),
	}
}

// GetOrCreate returns the Map Engine registered under name, constructing
// one if absent. Go methods cannot introduce their own type parameters,
// so this is a free function taking the Registry rather than a generic
// method on it — the Registry itself stores engines behind `any` and
// recovers the concrete type with a type assertion.
//
// If name already exists, it is returned without checking that K, V
// match what the caller expects — the caller is responsible for being
// consistent — except that a mismatched type assertion is still
// reported as an error rather than panicking.
//
// If ttl > 0 and the map's persisted TTL policy is not already active,
// the policy is applied through a short retrying write (mirroring the
// kept backoff wrapper's retry idiom) before returning, so a map
// created for the first time with a TTL starts expiring items right
// away rather than after its next restart.
func GetOrCreate[K comparable, V any](
	ctx context.Context,
	r *Registry,
	name string,
	keySer keyser.Serializer[K],
	valCodec codec.Codec[V],
	ttl time.Duration,
) (*mapengine.Engine[K, V], error) {
	r.mu.Lock()
	if existing, ok := r.entries[name]; ok {
		r.mu.Unlock()
		eng, ok := existing.engine.(*mapengine.Engine[K, V])
		if !ok {
			return nil, errors.Newf("registry: map %q already registered with a different key/value type", name)
		}
		return eng, nil
	}
	r.mu.Unlock()

	eng, err := mapengine.New(ctx, r.store, name, keySer, valCodec, mapengine.WithBatchWait(r.batchWait))
	if err != nil {
		return nil, errors.Wrapf(err, "registry: create map %q", name)
	}

	if ttl > 0 {
		if _, active := eng.TTLPolicy(); !active {
			if err := applyTTLWithRetry(ctx, eng, ttl); err != nil {
				return nil, errors.Wrapf(err, "registry: apply initial ttl for %q", name)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok {
		// Lost a construction race to another goroutine; discard our
		// engine and hand back the winner's, closing ours to avoid
		// leaking its sweeper goroutines.
		_ = eng.Close(ctx)
		winner, ok := existing.engine.(*mapengine.Engine[K, V])
		if !ok {
			return nil, errors.Newf("registry: map %q already registered with a different key/value type", name)
		}
		return winner, nil
	}

	r.entries[name] = entry{
		engine: eng,
		raw:    newRawAdapter[K, V](eng),
		closer: eng.Close,
	}
	return eng, nil
}

// applyTTLWithRetry persists the initial TTL policy, retrying a transient
// store failure with exponential backoff rather than surfacing it
// immediately — a freshly constructed map failing to register its very
// first TTL policy is the one write this package treats as worth
// retrying, matching the kept backoff wrapper's dial-time retry idiom
// elsewhere in this codebase.
func applyTTLWithRetry[K comparable, V any](ctx context.Context, eng *mapengine.Engine[K, V], ttl time.Duration) error {
	wrapper := backoff.NewBackoff(ctx, 1, 0.2, 2.0, 3)
	var opErr error
	wrapper.SetDoOperation(func() (any, error) {
		opErr = eng.SetItemExpiration(ctx, ttl, true)
		return nil, opErr
	})
	wrapper.SetNotify(func(err error, d time.Duration) {
		logger.WithFields(map[string]any{"error": err, "wait": d}).
			Debug("registry: retrying initial ttl persistence")
	})
	wrapper.Exec()
	return opErr
}

// Get returns the existing engine registered under name, or an error if
// none is registered or it was registered with a different type.
func Get[K comparable, V any](r *Registry, name string) (*mapengine.Engine[K, V], error) {
	r.mu.Lock()
	existing, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Newf("registry: map %q is not registered", name)
	}
	eng, ok := existing.engine.(*mapengine.Engine[K, V])
	if !ok {
		return nil, errors.Newf("registry: map %q is registered with a different key/value type", name)
	}
	return eng, nil
}

// GetRaw returns the type-erased view of a registered map, for
// collaborators that do not know K, V statically.
func (r *Registry) GetRaw(name string) (RawMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.raw, true
}

// Remove retires the engine registered under name: it is closed (both
// sweepers stopped) and removed from the registry. Returns false if no
// such name was registered. Not a spec-named operation, but required so
// a process that dynamically provisions and retires maps does not leak
// sweeper goroutines, and so tests can tear down fixtures cleanly.
func (r *Registry) Remove(ctx context.Context, name string) bool {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	if err := e.closer(ctx); err != nil {
		logger.WithFields(map[string]any{"map": name, "error": err}).
			Warn("registry: close failed during remove")
	}
	return true
}

// ListMapNames enumerates every registered name, filtered defensively
// so that a name containing the metadata separator can never leak into
// an external listing.
func (r *Registry) ListMapNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		if mapengine.IsMetaName(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}
