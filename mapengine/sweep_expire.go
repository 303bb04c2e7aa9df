package mapengine

import (
	"context"
	"time"

	"distmap/mapstore"
)

// rangeUpTo builds the (-inf, cutoff] range the expiration sweeper scans.
func rangeUpTo(cutoff float64) mapstore.ScoreRange {
	return mapstore.ScoreRange{Min: mapstore.NegInf, Max: cutoff}
}

// startExpirationSweeperLocked starts the Expiration Sweeper goroutine if
// it is not already running. It takes expMu itself, so concurrent calls
// start at most one goroutine; callers in ops.go call it after releasing
// the ttl mutex.
func (e *Engine[K, V]) startExpirationSweeperLocked() {
	e.expMu.Lock()
	defer e.expMu.Unlock()
	if e.expRunning {
		return
	}
	e.expRunning = true
	e.expStopCh = make(chan struct{})
	e.expDone = make(chan struct{})
	go e.runExpirationSweeper(e.expStopCh, e.expDone)
}

func (e *Engine[K, V]) stopExpirationSweeper() {
	e.expMu.Lock()
	if !e.expRunning {
		e.expMu.Unlock()
		return
	}
	e.expRunning = false
	stopCh := e.expStopCh
	e.expMu.Unlock()
	close(stopCh)
}

// runExpirationSweeper ticks once per second, sweeping access-time for
// members older than now-TTL. A single pass never overlaps with the
// next: the ticker is drained (not buffered past one pending tick)
// because the loop only re-enters select after a pass fully completes.
func (e *Engine[K, V]) runExpirationSweeper(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(sweeperPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-stopCh:
			return
		case <-ticker.C:
			e.expirationPass(context.Background())
		}
	}
}

// expirationPass finds every key whose access-time is old enough to
// have outlived the current TTL and expires it. Errors on individual
// keys, and on the range query itself, are swallowed: the next tick
// retries.
func (e *Engine[K, V]) expirationPass(ctx context.Context) {
	ttl, active := e.ttlSnapshot()
	if !active {
		return
	}

	cutoff := float64(nowUnixSeconds()) - ttl.Seconds()
	members, err := e.store.ZRangeByScore(ctx, accessTimeKey(e.name), rangeUpTo(cutoff))
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: expiration sweep range query failed, retrying next tick")
		return
	}

	for _, field := range members {
		e.expireOne(ctx, field)
	}
}

func (e *Engine[K, V]) expireOne(ctx context.Context, field string) {
	lease, ok, err := e.store.HGetLease(ctx, dataKey(e.name), field)
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "field": field, "error": err}).
			Warn("mapengine: expiration fetch failed, skipping this pass")
		return
	}
	if !ok {
		// Orphan: present in access-time but absent in data. Drop it
		// and skip handlers.
		if err := e.store.ZRem(ctx, accessTimeKey(e.name), field); err != nil {
			e.logMetaCleanupError("access-time (orphan)", err)
		}
		return
	}
	defer lease.Release()

	key, err := e.keySer.Decode(field)
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "field": field, "error": err}).
			Warn("mapengine: expiration key decode failed, skipping")
		return
	}

	if _, err := e.store.HDel(ctx, dataKey(e.name), field); err != nil {
		logger.WithFields(map[string]any{"map": e.name, "field": field, "error": err}).
			Warn("mapengine: expiration delete failed, will retry next pass")
		return
	}
	e.deleteMetadata(ctx, field)

	value, err := e.valCodec.Decode(lease.Bytes())
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "field": field, "error": err}).
			Warn("mapengine: expiration value decode failed, dispatch skipped")
		return
	}

	e.dispatcher.DispatchExpired(key, value)
	e.dispatcher.DispatchRemove(key, value)
}
