package mapengine

import (
	"context"

	"github.com/cockroachdb/errors"

	"distmap/mapstore"
)

// MigrationStatus reports the cardinalities of both timestamp
// structures, used to judge how far a map's live migration to the
// sorted-set path has progressed.
type MigrationStatus struct {
	TimestampsCount       int64
	TimestampsSortedCount int64
}

// GetMigrationStatus reports how far a map's live migration from the
// legacy timestamps hash to timestamps-sorted has progressed.
func (e *Engine[K, V]) GetMigrationStatus(ctx context.Context) (MigrationStatus, error) {
	hashCount, err := e.store.HLen(ctx, timestampsKey(e.name))
	if err != nil {
		return MigrationStatus{}, errors.Wrapf(err, "mapengine: migration status for %s", e.name)
	}
	sortedCount, err := e.store.ZCard(ctx, timestampsSortedKey(e.name))
	if err != nil {
		return MigrationStatus{}, errors.Wrapf(err, "mapengine: migration status for %s", e.name)
	}
	return MigrationStatus{TimestampsCount: hashCount, TimestampsSortedCount: sortedCount}, nil
}

// MigrateTimestampsToSortedSet is a one-shot, idempotent migration from
// the legacy timestamps hash into timestamps-sorted: every field present
// in the hash but missing from the sorted set is added with the hash's
// score. Running it again is a no-op — every field already has a
// matching sorted-set member, so ZAdd just rewrites the same score.
//
// Two processes racing to migrate the same map is harmless (the
// operation is naturally idempotent), but a short advisory lock is
// taken anyway to avoid duplicated scan work across them; losing the
// race is not an error: this call then returns nil at once without
// migrating anything, and the lock holder does the work.
func (e *Engine[K, V]) MigrateTimestampsToSortedSet(ctx context.Context) error {
	lock := mapstore.NewLock(e.store, "migrate:"+e.name, migrationLockTTL)
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		return errors.Wrapf(err, "mapengine: acquire migration lock for %s", e.name)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.WithFields(map[string]any{"map": e.name, "error": err}).
				Warn("mapengine: migration lock release failed, will expire on its own")
		}
	}()

	all, err := e.store.HGetAll(ctx, timestampsKey(e.name))
	if err != nil {
		return errors.Wrapf(err, "mapengine: migrate %s", e.name)
	}

	for field, raw := range all {
		ticks, terr := decodeTicks(string(raw))
		if terr != nil {
			continue
		}
		if err := e.store.ZAdd(ctx, timestampsSortedKey(e.name), field, ticksToScore(ticks)); err != nil {
			return errors.Wrapf(err, "mapengine: migrate field for %s", e.name)
		}
	}

	return nil
}
