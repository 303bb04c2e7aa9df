package mapengine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// PagedEntry is one row of a GetEntriesPaged result: the decoded
// key/value plus its version and last-modified metadata, the latter
// rendered both as a raw timestamp and a human-readable "time ago"
// string for display.
type PagedEntry[K comparable, V any] struct {
	Key       K
	Value     V
	Version   string
	Timestamp time.Time
	Age       string
}

// PagedResult is the return shape of GetEntriesPaged.
type PagedResult[K comparable, V any] struct {
	Entries     []PagedEntry[K, V]
	CurrentPage int
	PageSize    int
	TotalCount  int64
	TotalPages  int64
	HasNext     bool
	HasPrevious bool
}

// GetEntriesPaged returns one page of entries. With no search pattern, it
// relies on the data hash's O(1) cardinality and a cursor scan with the
// small pagination chunk size, stopping as soon as pageSize items have
// been collected. With a search pattern, it scans the whole hash with
// the larger full-iteration chunk size, filters in memory on the
// stringified key, and paginates the filtered list; the reported total
// is the filtered count, not the map's total.
func (e *Engine[K, V]) GetEntriesPaged(ctx context.Context, page, pageSize int, searchPattern string) (PagedResult[K, V], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	if searchPattern == "" {
		return e.pagedNoSearch(ctx, page, pageSize)
	}
	return e.pagedWithSearch(ctx, page, pageSize, searchPattern)
}

func (e *Engine[K, V]) pagedNoSearch(ctx context.Context, page, pageSize int) (PagedResult[K, V], error) {
	total, err := e.store.HLen(ctx, dataKey(e.name))
	if err != nil {
		return PagedResult[K, V]{}, errors.Wrapf(err, "mapengine: paginate %s", e.name)
	}

	skip := (page - 1) * pageSize
	entries := make([]PagedEntry[K, V], 0, pageSize)

	var seen int
	stop := errors.New("mapengine: page collected")
	scanErr := e.store.HScan(ctx, dataKey(e.name), pageChunkSize, func(field string, value []byte) error {
		if seen < skip {
			seen++
			return nil
		}
		entry, ok := e.buildPagedEntry(ctx, field, value)
		if ok {
			entries = append(entries, entry)
		}
		seen++
		if len(entries) >= pageSize {
			return stop
		}
		return nil
	})
	if scanErr != nil && !errors.Is(scanErr, stop) {
		return PagedResult[K, V]{}, errors.Wrapf(scanErr, "mapengine: paginate scan %s", e.name)
	}

	return buildPagedResult(entries, page, pageSize, total), nil
}

func (e *Engine[K, V]) pagedWithSearch(ctx context.Context, page, pageSize int, pattern string) (PagedResult[K, V], error) {
	needle := strings.ToLower(pattern)

	var matched []PagedEntry[K, V]
	err := e.store.HScan(ctx, dataKey(e.name), scanChunkSize, func(field string, value []byte) error {
		if !strings.Contains(strings.ToLower(field), needle) {
			return nil
		}
		entry, ok := e.buildPagedEntry(ctx, field, value)
		if ok {
			matched = append(matched, entry)
		}
		return nil
	})
	if err != nil {
		return PagedResult[K, V]{}, errors.Wrapf(err, "mapengine: paginate search scan %s", e.name)
	}

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return buildPagedResult(matched[start:end], page, pageSize, total), nil
}

func buildPagedResult[K comparable, V any](entries []PagedEntry[K, V], page, pageSize int, total int64) PagedResult[K, V] {
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	return PagedResult[K, V]{
		Entries:     entries,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasNext:     int64(page) < totalPages,
		HasPrevious: page > 1,
	}
}

// buildPagedEntry decodes one hash pair plus its version/timestamp
// metadata. Decode failures on either the key or the value cause the
// entry to be skipped silently.
func (e *Engine[K, V]) buildPagedEntry(ctx context.Context, field string, raw []byte) (PagedEntry[K, V], bool) {
	var zero PagedEntry[K, V]

	key, err := e.keySer.Decode(field)
	if err != nil {
		return zero, false
	}
	value, err := e.valCodec.Decode(raw)
	if err != nil {
		return zero, false
	}

	version, _, err := e.store.HGet(ctx, versionsKey(e.name), field)
	if err != nil {
		return zero, false
	}

	ts, ok, err := e.store.HGet(ctx, timestampsKey(e.name), field)
	var at time.Time
	if err == nil && ok {
		if ticks, terr := decodeTicks(string(ts)); terr == nil {
			at = time.Unix(0, (ticks-unixEpochTicks)*100)
		}
	}

	return PagedEntry[K, V]{
		Key:       key,
		Value:     value,
		Version:   string(version),
		Timestamp: at,
		Age:       timeAgo(at),
	}, true
}

// timeAgo renders a human-readable relative duration, e.g. "3 minutes ago".
// The engine only needs coarse buckets; there is no localization
// requirement anywhere in scope.
func timeAgo(at time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	d := time.Since(at)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return formatUnit(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return formatUnit(int(d.Hours()), "hour")
	default:
		return formatUnit(int(d.Hours()/24), "day")
	}
}

func formatUnit(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.Itoa(n) + " " + unit + "s ago"
}
