package mapstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// ZAdd sets a member's score, creating the sorted set if needed.
func (c *Client) ZAdd(ctx context.Context, key, member string, score float64) error {
	if err := c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return errors.Wrapf(err, "mapstore: zadd %s", key)
	}
	return nil
}

// ZRem removes a member from a sorted set. Unlike HDel it does not
// report whether the member was present — none of the sorted-set call
// sites in the Map Engine need that signal, since they're always paired
// with an HDel on the data hash that already carries it.
func (c *Client) ZRem(ctx context.Context, key, member string) error {
	if err := c.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return errors.Wrapf(err, "mapstore: zrem %s", key)
	}
	return nil
}

// ZCard is the cardinality of a sorted set.
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "mapstore: zcard %s", key)
	}
	return n, nil
}

// ZScore fetches the current score of a member. Missing members are
// reported as (0, false, nil).
func (c *Client) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := c.rdb.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "mapstore: zscore %s", key)
	}
	return score, true, nil
}

// ScoreRange is a score interval closed on the right: [Min, Max], or
// (Min, Max] when MinExclusive is set. MinExclusive follows Redis's
// "(score" ZRANGEBYSCORE syntax; Max is always inclusive.
type ScoreRange struct {
	Min          float64
	MinExclusive bool
	Max          float64
}

// ZRangeByScore returns members with score in r, in ascending score
// order — (Min, Max] for the batch sweeper ("score strictly greater than
// last-batch, score less than or equal to now-batchWait") and
// [-inf, cutoff] for the expiration sweeper.
func (c *Client) ZRangeByScore(ctx context.Context, key string, r ScoreRange) ([]string, error) {
	min := formatScore(r.Min)
	if r.MinExclusive {
		min = "(" + min
	}
	members, err := c.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: min,
		Max: formatScore(r.Max),
	}).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "mapstore: zrangebyscore %s", key)
	}
	return members, nil
}

func formatScore(f float64) string {
	if f == negInf {
		return "-inf"
	}
	if f == posInf {
		return "+inf"
	}
	return formatFloat(f)
}
