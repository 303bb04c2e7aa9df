package mapengine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"distmap/dispatch"
)

// Get fetches the current value for key. The boolean return is false
// when the field is absent — absence is not an error, per the engine's
// error-handling contract. On a hit, if a TTL policy is active,
// access-time is bumped to the current instant before returning; this
// update is best-effort and its failure is swallowed, since it is purely
// an optimization for the Expiration Sweeper and must never fail a read.
func (e *Engine[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	field, err := e.keySer.Encode(key)
	if err != nil {
		return zero, false, errors.Wrap(err, "mapengine: encode key")
	}

	lease, ok, err := e.store.HGetLease(ctx, dataKey(e.name), field)
	if err != nil {
		return zero, false, errors.Wrapf(err, "mapengine: get %s", e.name)
	}
	if !ok {
		return zero, false, nil
	}
	defer lease.Release()

	v, err := e.valCodec.Decode(lease.Bytes())
	if err != nil {
		return zero, false, errors.Wrap(err, "mapengine: decode value")
	}

	if e.ttlIsActive() {
		e.touchAccessTime(ctx, field)
	}

	return v, true, nil
}

func (e *Engine[K, V]) touchAccessTime(ctx context.Context, field string) {
	if err := e.store.ZAdd(ctx, accessTimeKey(e.name), field, float64(nowUnixSeconds())); err != nil {
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: access-time update failed, continuing")
	}
}

// Set writes key=value, regenerates the version, and writes the
// last-modified timestamp to both timestamp structures. If a TTL policy
// is active, access-time is also bumped. Whether the key already
// existed is determined by a preceding HExists check that is not
// transactional with the write that follows it; on a concurrent race
// either dispatch is acceptable, but never both for the same Set — this
// is a deliberate best-effort tradeoff rather than added synchronization
// to make the check atomic.
func (e *Engine[K, V]) Set(ctx context.Context, key K, value V) error {
	field, err := e.keySer.Encode(key)
	if err != nil {
		return errors.Wrap(err, "mapengine: encode key")
	}

	raw, err := e.valCodec.Encode(value)
	if err != nil {
		return errors.Wrap(err, "mapengine: encode value")
	}

	existed, err := e.store.HExists(ctx, dataKey(e.name), field)
	if err != nil {
		return errors.Wrapf(err, "mapengine: check existence for %s", e.name)
	}

	if err := e.store.HSet(ctx, dataKey(e.name), field, raw); err != nil {
		return errors.Wrapf(err, "mapengine: set %s", e.name)
	}

	version, err := dispatch.NewVersion()
	if err != nil {
		return errors.Wrap(err, "mapengine: mint version")
	}
	if err := e.store.HSet(ctx, versionsKey(e.name), field, []byte(version)); err != nil {
		return errors.Wrapf(err, "mapengine: set version for %s", e.name)
	}

	ticks := nowTicks()
	if err := e.store.HSet(ctx, timestampsKey(e.name), field, []byte(encodeTicks(ticks))); err != nil {
		return errors.Wrapf(err, "mapengine: set timestamp for %s", e.name)
	}
	if err := e.store.ZAdd(ctx, timestampsSortedKey(e.name), field, ticksToScore(ticks)); err != nil {
		return errors.Wrapf(err, "mapengine: set sorted timestamp for %s", e.name)
	}

	if e.ttlIsActive() {
		e.touchAccessTime(ctx, field)
	}

	if existed {
		e.dispatcher.DispatchUpdate(key, value)
	} else {
		e.dispatcher.DispatchAdd(key, value)
	}

	return nil
}

// Remove deletes key from data, versions, both timestamp structures,
// and access-time. It returns true only if the data hash actually
// contained the field, and only then does it dispatch OnRemove handlers
// with the value read just before deletion.
func (e *Engine[K, V]) Remove(ctx context.Context, key K) (bool, error) {
	field, err := e.keySer.Encode(key)
	if err != nil {
		return false, errors.Wrap(err, "mapengine: encode key")
	}

	lease, ok, err := e.store.HGetLease(ctx, dataKey(e.name), field)
	if err != nil {
		return false, errors.Wrapf(err, "mapengine: get before remove for %s", e.name)
	}
	if !ok {
		return false, nil
	}
	defer lease.Release()

	existed, err := e.store.HDel(ctx, dataKey(e.name), field)
	if err != nil {
		return false, errors.Wrapf(err, "mapengine: delete field for %s", e.name)
	}
	if !existed {
		return false, nil
	}

	e.deleteMetadata(ctx, field)

	value, err := e.valCodec.Decode(lease.Bytes())
	if err != nil {
		// The field existed and is now gone; a codec failure on the
		// removed value is not a reason to report Remove as failed.
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: decode failure on removed value, skipping dispatch")
		return true, nil
	}

	e.dispatcher.DispatchRemove(key, value)
	return true, nil
}

// deleteMetadata removes field from versions, both timestamp structures,
// and access-time. Individual failures are logged and swallowed: a
// stray metadata orphan is tolerated and cleaned up by the next
// sweeper pass rather than failing the caller's Remove/Clear/expire.
func (e *Engine[K, V]) deleteMetadata(ctx context.Context, field string) {
	if _, err := e.store.HDel(ctx, versionsKey(e.name), field); err != nil {
		e.logMetaCleanupError("versions", err)
	}
	if _, err := e.store.HDel(ctx, timestampsKey(e.name), field); err != nil {
		e.logMetaCleanupError("timestamps", err)
	}
	if err := e.store.ZRem(ctx, timestampsSortedKey(e.name), field); err != nil {
		e.logMetaCleanupError("timestamps-sorted", err)
	}
	if err := e.store.ZRem(ctx, accessTimeKey(e.name), field); err != nil {
		e.logMetaCleanupError("access-time", err)
	}
}

func (e *Engine[K, V]) logMetaCleanupError(structure string, err error) {
	logger.WithFields(map[string]any{
		"map":       e.name,
		"structure": structure,
		"error":     err,
	}).Warn("mapengine: metadata cleanup failed, orphan left for next sweep")
}

// ContainsKey is an exists-check on the data hash only.
func (e *Engine[K, V]) ContainsKey(ctx context.Context, key K) (bool, error) {
	field, err := e.keySer.Encode(key)
	if err != nil {
		return false, errors.Wrap(err, "mapengine: encode key")
	}
	ok, err := e.store.HExists(ctx, dataKey(e.name), field)
	if err != nil {
		return false, errors.Wrapf(err, "mapengine: contains key for %s", e.name)
	}
	return ok, nil
}

// Count is the cardinality of the data hash.
func (e *Engine[K, V]) Count(ctx context.Context) (int64, error) {
	n, err := e.store.HLen(ctx, dataKey(e.name))
	if err != nil {
		return 0, errors.Wrapf(err, "mapengine: count for %s", e.name)
	}
	return n, nil
}

// Clear deletes the data hash, both timestamp structures, the versions
// hash, the ttl-config key, and the access-time sorted set, then
// dispatches OnClear exactly once. The ttl-config deletion only removes
// the persisted policy; the in-memory TTL mirror and sweeper state are
// untouched by Clear — clearing entries is not the same operation as
// disabling TTL (that is SetItemExpiration's job).
func (e *Engine[K, V]) Clear(ctx context.Context) error {
	keys := []string{
		dataKey(e.name),
		timestampsKey(e.name),
		timestampsSortedKey(e.name),
		versionsKey(e.name),
		ttlConfigKey(e.name),
		accessTimeKey(e.name),
	}
	if err := e.store.DeleteKeys(ctx, keys...); err != nil {
		return errors.Wrapf(err, "mapengine: clear %s", e.name)
	}
	e.dispatcher.DispatchClear()
	return nil
}

// SetItemExpiration persists (or, with active=false, removes) the TTL
// policy, and starts or stops the Expiration Sweeper to match. The
// store write is the authoritative record; the in-memory mirror exists
// only to decide whether to keep the sweeper goroutine running — every
// sweeper pass re-reads the mirror, and the mirror never substitutes
// for the store.
func (e *Engine[K, V]) SetItemExpiration(ctx context.Context, ttl time.Duration, active bool) error {
	if active {
		if err := e.store.StringSet(ctx, ttlConfigKey(e.name), formatSeconds(ttl)); err != nil {
			return errors.Wrapf(err, "mapengine: persist ttl policy for %s", e.name)
		}
	} else {
		if err := e.store.DeleteKeys(ctx, ttlConfigKey(e.name)); err != nil {
			return errors.Wrapf(err, "mapengine: remove ttl policy for %s", e.name)
		}
	}

	e.ttlMu.Lock()
	e.ttl = ttl
	wasActive := e.ttlActive
	e.ttlActive = active
	e.ttlMu.Unlock()

	switch {
	case active && !wasActive:
		e.startExpirationSweeperLocked()
	case !active && wasActive:
		e.stopExpirationSweeper()
	}
	return nil
}

// TTLPolicy returns the in-memory mirror of the TTL policy: the
// configured duration and whether it is currently active. It reflects
// whatever was last persisted by SetItemExpiration or observed at
// construction time, not a fresh store read.
func (e *Engine[K, V]) TTLPolicy() (time.Duration, bool) {
	return e.ttlSnapshot()
}

func (e *Engine[K, V]) ttlIsActive() bool {
	e.ttlMu.Lock()
	defer e.ttlMu.Unlock()
	return e.ttlActive
}

func (e *Engine[K, V]) ttlSnapshot() (time.Duration, bool) {
	e.ttlMu.Lock()
	defer e.ttlMu.Unlock()
	return e.ttl, e.ttlActive
}

// OnAdd, OnUpdate, OnRemove, OnClear, OnBatchUpdate, OnExpired register
// local handlers with this engine instance. Registration is independent
// per instance, even for two engines open against the same map name.
func (e *Engine[K, V]) OnAdd(h dispatch.AddHandler[K, V])         { e.dispatcher.OnAdd(h) }
func (e *Engine[K, V]) OnUpdate(h dispatch.UpdateHandler[K, V])   { e.dispatcher.OnUpdate(h) }
func (e *Engine[K, V]) OnRemove(h dispatch.RemoveHandler[K, V])   { e.dispatcher.OnRemove(h) }
func (e *Engine[K, V]) OnClear(h dispatch.ClearHandler)           { e.dispatcher.OnClear(h) }
func (e *Engine[K, V]) OnBatchUpdate(h dispatch.BatchHandler[K, V]) { e.dispatcher.OnBatchUpdate(h) }
func (e *Engine[K, V]) OnExpired(h dispatch.ExpiredHandler[K, V]) { e.dispatcher.OnExpired(h) }
