// Package mapstore is the thin typed facade the Map Engine uses to talk
// to a Redis-compatible remote store. It knows about hashes, sorted
// sets, strings, and cursor scans; it knows nothing about map semantics,
// codecs, or key types — that belongs to the caller.
package mapstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithFields(logrus.Fields{
	"component": "mapstore",
})

// Client wraps a single *redis.Client. One Client is meant to be shared
// across every Map Engine opened against the same database index — the
// connection pool underneath is safe for concurrent use.
type Client struct {
	rdb *redis.Client
}

// Dial builds a Client and retries the initial PING with jittered
// exponential backoff, mirroring the connection-retry idiom used
// elsewhere in this codebase for dialing a remote dependency. Unlike
// per-call store operations (which surface errors directly to the
// caller, per the engine's error-handling contract), the dial step is
// the one place this package retries internally — a transient failure
// while nothing has been offered to a caller yet is safe to paper over.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
	rdb := redis.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = cfg.DialTimeout

	pingErr := backoff.RetryNotify(
		func() error {
			return rdb.Ping(ctx).Err()
		},
		backoff.WithContext(bo, ctx),
		func(err error, wait time.Duration) {
			logger.WithFields(logrus.Fields{
				"addr":  cfg.Addr,
				"error": err,
			}).Debugf("store ping failed, retrying in %s", wait)
		},
	)
	if pingErr != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(pingErr, "mapstore: failed to connect to %s", cfg.Addr)
	}

	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// DeleteKeys removes entire top-level keys (as opposed to fields within
// a hash). Used for Clear, where the data hash, both timestamp
// structures, the versions hash, the ttl-config string, and the
// access-time sorted set are each a distinct top-level key.
func (c *Client) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "mapstore: delete keys")
	}
	return nil
}

// Exists reports whether any of the given top-level keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return false, errors.Wrap(err, "mapstore: exists")
	}
	return n > 0, nil
}
