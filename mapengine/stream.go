package mapengine

import (
	"context"

	"github.com/cockroachdb/errors"

	"distmap/channel"
)

// GetAllKeys materializes every present key as a snapshot. Intended
// only for small maps; large maps should use the streaming variant.
func (e *Engine[K, V]) GetAllKeys(ctx context.Context) ([]K, error) {
	var keys []K
	err := e.GetAllKeysStream(ctx, func(k K) error {
		keys = append(keys, k)
		return nil
	})
	return keys, err
}

// GetAllValues materializes every present value as a snapshot.
func (e *Engine[K, V]) GetAllValues(ctx context.Context) ([]V, error) {
	var values []V
	err := e.GetAllEntriesStream(ctx, func(_ K, v V) error {
		values = append(values, v)
		return nil
	})
	return values, err
}

// GetAllEntries materializes every present key/value pair as a snapshot.
func (e *Engine[K, V]) GetAllEntries(ctx context.Context) ([]Pair[K, V], error) {
	var pairs []Pair[K, V]
	err := e.GetAllEntriesStream(ctx, func(k K, v V) error {
		pairs = append(pairs, Pair[K, V]{Key: k, Value: v})
		return nil
	})
	return pairs, err
}

// Pair is a decoded key/value association, used by materializing reads.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// KeyConsumer, ValueConsumer, and EntryConsumer receive one decoded item
// at a time from a streaming enumeration. Returning an error aborts the
// scan and is propagated to the caller; it is not swallowed the way a
// decode failure is, since here the consumer is explicitly in control
// of continuation.
type (
	KeyConsumer[K comparable]           func(k K) error
	ValueConsumer[V any]                func(v V) error
	EntryConsumer[K comparable, V any]  func(k K, v V) error
)

// GetAllKeysStream iterates the data hash with a cursor scan bounded by
// the full-iteration chunk size, decoding only the key of each pair and
// invoking consume once per decoded key. A key that fails to decode is
// skipped silently.
func (e *Engine[K, V]) GetAllKeysStream(ctx context.Context, consume KeyConsumer[K]) error {
	err := e.store.HScan(ctx, dataKey(e.name), scanChunkSize, func(field string, _ []byte) error {
		k, derr := e.keySer.Decode(field)
		if derr != nil {
			return nil
		}
		return consume(k)
	})
	if err != nil {
		return errors.Wrapf(err, "mapengine: stream keys for %s", e.name)
	}
	return nil
}

// GetAllValuesStream is GetAllKeysStream's value-only counterpart.
func (e *Engine[K, V]) GetAllValuesStream(ctx context.Context, consume ValueConsumer[V]) error {
	return e.GetAllEntriesStream(ctx, func(_ K, v V) error {
		return consume(v)
	})
}

// GetAllEntriesStream iterates the data hash with a cursor scan bounded
// by the full-iteration chunk size, decoding both key and value of each
// pair, invoking consume once per decoded pair in whatever order the
// server yields them. Memory usage is bounded by the chunk size
// regardless of map size. The scan is best-effort consistent: entries
// added or removed during iteration may or may not be visible.
func (e *Engine[K, V]) GetAllEntriesStream(ctx context.Context, consume EntryConsumer[K, V]) error {
	err := e.store.HScan(ctx, dataKey(e.name), scanChunkSize, func(field string, raw []byte) error {
		k, derr := e.keySer.Decode(field)
		if derr != nil {
			return nil
		}
		v, derr := e.valCodec.Decode(raw)
		if derr != nil {
			return nil
		}
		return consume(k, v)
	})
	if err != nil {
		return errors.Wrapf(err, "mapengine: stream entries for %s", e.name)
	}
	return nil
}

// EntriesChan streams entries onto a channel instead of invoking a
// callback, for a caller that wants to range over results and abandon
// the scan early just by no longer receiving. The returned channel is
// closed once the scan finishes or ctx is cancelled, whichever comes
// first; a decode failure on either key or value skips that pair the
// same way the callback-based variant does.
func (e *Engine[K, V]) EntriesChan(ctx context.Context) <-chan Pair[K, V] {
	raw := make(chan Pair[K, V])
	go func() {
		defer close(raw)
		_ = e.store.HScan(ctx, dataKey(e.name), scanChunkSize, func(field string, value []byte) error {
			k, derr := e.keySer.Decode(field)
			if derr != nil {
				return nil
			}
			v, derr := e.valCodec.Decode(value)
			if derr != nil {
				return nil
			}
			select {
			case raw <- Pair[K, V]{Key: k, Value: v}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return channel.OrDone(ctx, raw)
}
