package registry

import (
	"context"

	"github.com/cockroachdb/errors"

	"distmap/mapengine"
)

// RawEntry is one key/value pair rendered for a collaborator that does
// not know K or V statically — the canonical key encoding and the
// value's Display() string, not the typed values themselves.
type RawEntry struct {
	Key   string
	Value string
}

// RawPagedResult mirrors mapengine.PagedResult with its entries rendered
// as RawEntry instead of typed PagedEntry[K, V].
type RawPagedResult struct {
	Entries     []RawEntry
	CurrentPage int
	PageSize    int
	TotalCount  int64
	TotalPages  int64
	HasNext     bool
	HasPrevious bool
}

// RawMap is the minimal type-erased view a collaborator needs to list,
// page, stream, and migrate a map without knowing its key/value types,
// built by hand instead of reaching for reflection.
type RawMap interface {
	Name() string
	Count(ctx context.Context) (int64, error)
	ListEntries(ctx context.Context) ([]RawEntry, error)
	StreamEntries(ctx context.Context, consume func(RawEntry) error) error
	Paged(ctx context.Context, page, pageSize int, searchPattern string) (RawPagedResult, error)
	Migrate(ctx context.Context) error
	MigrationStatus(ctx context.Context) (mapengine.MigrationStatus, error)
}

// rawAdapter makes one typed *mapengine.Engine[K, V] satisfy RawMap.
type rawAdapter[K comparable, V any] struct {
	eng *mapengine.Engine[K, V]
}

func newRawAdapter[K comparable, V any](eng *mapengine.Engine[K, V]) RawMap {
	return &rawAdapter[K, V]{eng: eng}
}

func (a *rawAdapter[K, V]) Name() string { return a.eng.Name() }

func (a *rawAdapter[K, V]) Count(ctx context.Context) (int64, error) {
	return a.eng.Count(ctx)
}

func (a *rawAdapter[K, V]) ListEntries(ctx context.Context) ([]RawEntry, error) {
	var out []RawEntry
	err := a.StreamEntries(ctx, func(e RawEntry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

func (a *rawAdapter[K, V]) StreamEntries(ctx context.Context, consume func(RawEntry) error) error {
	return a.eng.GetAllEntriesStream(ctx, func(k K, v V) error {
		key, err := a.eng.KeyCodec().Encode(k)
		if err != nil {
			return nil
		}
		return consume(RawEntry{Key: key, Value: a.eng.ValueCodec().Display(v)})
	})
}

func (a *rawAdapter[K, V]) Paged(ctx context.Context, page, pageSize int, searchPattern string) (RawPagedResult, error) {
	res, err := a.eng.GetEntriesPaged(ctx, page, pageSize, searchPattern)
	if err != nil {
		return RawPagedResult{}, errors.Wrap(err, "registry: paged")
	}

	entries := make([]RawEntry, 0, len(res.Entries))
	for _, e := range res.Entries {
		key, kerr := a.eng.KeyCodec().Encode(e.Key)
		if kerr != nil {
			continue
		}
		entries = append(entries, RawEntry{Key: key, Value: a.eng.ValueCodec().Display(e.Value)})
	}

	return RawPagedResult{
		Entries:     entries,
		CurrentPage: res.CurrentPage,
		PageSize:    res.PageSize,
		TotalCount:  res.TotalCount,
		TotalPages:  res.TotalPages,
		HasNext:     res.HasNext,
		HasPrevious: res.HasPrevious,
	}, nil
}

func (a *rawAdapter[K, V]) Migrate(ctx context.Context) error {
	return a.eng.MigrateTimestampsToSortedSet(ctx)
}

func (a *rawAdapter[K, V]) MigrationStatus(ctx context.Context) (mapengine.MigrationStatus, error) {
	return a.eng.GetMigrationStatus(ctx)
}
