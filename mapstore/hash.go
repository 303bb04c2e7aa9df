package mapstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// HSet writes a single field of a hash.
func (c *Client) HSet(ctx context.Context, key, field string, value []byte) error {
	if err := c.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return errors.Wrapf(err, "mapstore: hset %s", key)
	}
	return nil
}

// HGet reads a single field. A missing field is reported as redis.Nil
// translated to (nil, false, nil) — not an error, per the engine's
// "absent is not an error" contract.
func (c *Client) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	v, err := c.rdb.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "mapstore: hget %s", key)
	}
	return v, true, nil
}

// HExists reports whether a field is present without fetching its value.
func (c *Client) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := c.rdb.HExists(ctx, key, field).Result()
	if err != nil {
		return false, errors.Wrapf(err, "mapstore: hexists %s", key)
	}
	return ok, nil
}

// HDel removes one field from a hash. Returns true if the field was
// actually present (matches Remove's "return true only if it existed").
func (c *Client) HDel(ctx context.Context, key, field string) (bool, error) {
	n, err := c.rdb.HDel(ctx, key, field).Result()
	if err != nil {
		return false, errors.Wrapf(err, "mapstore: hdel %s", key)
	}
	return n > 0, nil
}

// HLen is the cardinality of a hash — used for Count and for the
// no-search-pattern branch of pagination.
func (c *Client) HLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.HLen(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "mapstore: hlen %s", key)
	}
	return n, nil
}

// HGetAll materializes an entire hash. Only safe for small maps; large
// maps must use HScan.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "mapstore: hgetall %s", key)
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}

// HScanFunc is invoked once per field/value pair yielded by a cursor
// scan. An error returned from fn stops the scan and is propagated to
// HScan's caller, so a consumer that wants to abort early can just
// return one.
type HScanFunc func(field string, value []byte) error

// HScan performs an incremental server-side scan of a hash field by
// field, invoking fn once per pair, bounding memory usage to chunkSize
// regardless of the hash's total size. The scan is best-effort
// consistent under concurrent mutation, per the store's native SCAN
// family semantics.
func (c *Client) HScan(ctx context.Context, key string, chunkSize int64, fn HScanFunc) error {
	var cursor uint64
	for {
		var (
			page []string
			err  error
		)
		page, cursor, err = c.rdb.HScan(ctx, key, cursor, "", chunkSize).Result()
		if err != nil {
			return errors.Wrapf(err, "mapstore: hscan %s", key)
		}
		for i := 0; i+1 < len(page); i += 2 {
			if err := fn(page[i], []byte(page[i+1])); err != nil {
				return err
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}
