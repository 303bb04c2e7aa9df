package mapstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// StringSet writes a plain string key with no expiration — used for
// ttl-config and last-batch, both of which are policy/cursor state the
// engine manages explicitly rather than something the store should age
// out on its own.
func (c *Client) StringSet(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "mapstore: set %s", key)
	}
	return nil
}

// StringGet reads a plain string key. Absence is reported as
// ("", false, nil), not an error.
func (c *Client) StringGet(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "mapstore: get %s", key)
	}
	return v, true, nil
}
