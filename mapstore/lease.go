package mapstore

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// leasePool recycles the byte slices Lease hands out, so a hot read
// path for large values does not allocate a fresh buffer per Get.
var leasePool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 4096)
		return &buf
	},
}

// Lease is a borrowed buffer returned by HGetLease. The caller must call
// Release exactly once, on every exit path — including a decode
// failure — or the buffer is simply never recycled (a missed Release
// leaks nothing beyond one allocation's worth of GC pressure, it is not
// a correctness hazard).
type Lease struct {
	buf *[]byte
}

// Bytes is the borrowed value. It is only valid until Release is called.
func (l Lease) Bytes() []byte {
	if l.buf == nil {
		return nil
	}
	return *l.buf
}

// Release returns the underlying buffer to the pool.
func (l Lease) Release() {
	if l.buf == nil {
		return
	}
	*l.buf = (*l.buf)[:0]
	leasePool.Put(l.buf)
}

// HGetLease is HGet's pooled-buffer counterpart: it copies the string
// the driver returns into a pooled buffer instead of a freshly allocated
// []byte, and returns a Lease the caller must Release.
// Intended for large values decoded once and discarded; callers that
// keep the decoded result around longer than the Get should use HGet.
func (c *Client) HGetLease(ctx context.Context, key, field string) (Lease, bool, error) {
	bufPtr := leasePool.Get().(*[]byte)

	cmd := c.rdb.HGet(ctx, key, field)
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		leasePool.Put(bufPtr)
		return Lease{}, false, nil
	}
	if err != nil {
		leasePool.Put(bufPtr)
		return Lease{}, false, errors.Wrapf(err, "mapstore: hget (leased) %s", key)
	}

	*bufPtr = append((*bufPtr)[:0], v...)
	return Lease{buf: bufPtr}, true, nil
}
