package mapengine

import (
	"context"
	"time"

	"distmap/dispatch"
	"distmap/mapstore"
)

// runBatchSweeper ticks once per second for the lifetime of the engine.
// Unlike the Expiration Sweeper it is not started/stopped by policy —
// every pass simply no-ops if no OnBatchUpdate handler is registered.
func (e *Engine[K, V]) runBatchSweeper() {
	defer close(e.batchDone)

	ticker := time.NewTicker(sweeperPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			e.batchPass(context.Background())
		}
	}
}

// batchPass finds every key whose last-modified timestamp falls past
// the cursor and within the batch window, then dispatches them as one
// batch. Falls back to the legacy unsorted timestamps hash when
// timestamps-sorted does not exist (or has been deliberately deleted,
// as the migration-fallback test exercises).
func (e *Engine[K, V]) batchPass(ctx context.Context) {
	if !e.dispatcher.HasBatchHandlers() {
		return
	}

	lastBatchScore, err := e.loadLastBatch(ctx)
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: batch sweep could not load cursor, retrying next tick")
		return
	}

	now := nowTicks()
	upper := now - int64(e.batchWait.Nanoseconds()/100)

	fields, err := e.batchCandidates(ctx, lastBatchScore, ticksToScore(upper))
	if err != nil {
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: batch sweep candidate query failed, retrying next tick")
		return
	}
	if len(fields) == 0 {
		return
	}

	entries := make([]dispatch.Entry[K, V], 0, len(fields))
	for _, field := range fields {
		entry, ok := e.loadBatchEntry(ctx, field)
		if ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return
	}

	// Cursor advances before dispatch so a slow or panicking handler
	// never causes the same batch to be resent.
	if err := e.store.StringSet(ctx, lastBatchKey(e.name), encodeTicks(now)); err != nil {
		logger.WithFields(map[string]any{"map": e.name, "error": err}).
			Warn("mapengine: batch cursor advance failed, batch not dispatched")
		return
	}

	e.dispatcher.DispatchBatch(entries)
}

// loadLastBatch loads the last-batch cursor as a sorted-set score. An
// absent cursor (no batch has ever fired) is treated as negative
// infinity, so the first pass considers every key ever written.
func (e *Engine[K, V]) loadLastBatch(ctx context.Context) (float64, error) {
	raw, ok, err := e.store.StringGet(ctx, lastBatchKey(e.name))
	if err != nil {
		return 0, err
	}
	if !ok {
		return mapstore.NegInf, nil
	}
	ticks, err := decodeTicks(raw)
	if err != nil {
		return 0, err
	}
	return ticksToScore(ticks), nil
}

// batchCandidates returns field names with score in (lower, upper],
// preferring timestamps-sorted and falling back to filtering the legacy
// timestamps hash in memory when the sorted set does not exist.
func (e *Engine[K, V]) batchCandidates(ctx context.Context, lower, upper float64) ([]string, error) {
	sortedKey := timestampsSortedKey(e.name)
	exists, err := e.store.Exists(ctx, sortedKey)
	if err != nil {
		return nil, err
	}

	if exists {
		return e.store.ZRangeByScore(ctx, sortedKey, mapstore.ScoreRange{
			Min:          lower,
			MinExclusive: true,
			Max:          upper,
		})
	}

	return e.batchCandidatesFromLegacyHash(ctx, lower, upper)
}

func (e *Engine[K, V]) batchCandidatesFromLegacyHash(ctx context.Context, lower, upper float64) ([]string, error) {
	all, err := e.store.HGetAll(ctx, timestampsKey(e.name))
	if err != nil {
		return nil, err
	}

	var out []string
	for field, raw := range all {
		ticks, err := decodeTicks(string(raw))
		if err != nil {
			continue
		}
		score := ticksToScore(ticks)
		if score > lower && score <= upper {
			out = append(out, field)
		}
	}
	return out, nil
}

// loadBatchEntry fetches and decodes the current value for field,
// silently skipping it if the value disappeared between the candidate
// scan and this fetch, or if it fails to decode.
func (e *Engine[K, V]) loadBatchEntry(ctx context.Context, field string) (dispatch.Entry[K, V], bool) {
	var zero dispatch.Entry[K, V]

	lease, ok, err := e.store.HGetLease(ctx, dataKey(e.name), field)
	if err != nil || !ok {
		return zero, false
	}
	defer lease.Release()

	key, err := e.keySer.Decode(field)
	if err != nil {
		return zero, false
	}
	value, err := e.valCodec.Decode(lease.Bytes())
	if err != nil {
		return zero, false
	}

	return dispatch.Entry[K, V]{Key: key, Value: value}, true
}
