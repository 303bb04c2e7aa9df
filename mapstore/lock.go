package mapstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Lock is a short-lived, advisory SETNX-based mutual exclusion primitive.
// It is deliberately narrow: the engine never uses it to make a Set,
// Remove, or Clear transactional across maps or operations — it is only
// used to stop two processes from redundantly performing the same
// idempotent one-shot migration at the same time. Losing the race is
// harmless — the loser returns without migrating and the holder does
// the work — Lock only saves duplicated work.
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewLock builds a Lock scoped to name, not yet acquired.
func NewLock(client *Client, name string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    "lock:" + name,
		token:  uuid.New().String(),
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the lock, returning false (not an error)
// if another holder currently has it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "mapstore: acquire lock %s", l.key)
	}
	return ok, nil
}

// releaseScript only deletes the key if it still holds this lock's own
// token, so a holder can never release a lock it lost to expiry and
// that has since been re-acquired by someone else.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Release gives up the lock if it is still held by this Lock instance.
// Releasing a lock this instance does not (or no longer) hold is a
// silent no-op, not an error — the migration guard treats it as
// best-effort cleanup, not a correctness requirement.
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.client.rdb.Eval(ctx, releaseScript, []string{l.key}, l.token).Result()
	if err != nil {
		return errors.Wrapf(err, "mapstore: release lock %s", l.key)
	}
	return nil
}
