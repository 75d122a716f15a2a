package connpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/stretchr/testify/require"
)

var errFakeDial = errors.New("connection refused")

type fakeConn struct {
	closed atomic.Bool
}

func (c *fakeConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	return 1, nil
}

func (c *fakeConn) Query(ctx context.Context, stmt string, args ...any) (pool.Rows, error) {
	return nil, errors.New("not supported")
}

func (c *fakeConn) Ping(ctx context.Context) error { return nil }

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

// fakeDialer fails its first `failures` dials, then succeeds
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	calls    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context) (pool.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failures {
		return nil, errFakeDial
	}
	c := &fakeConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newFakePool(t *testing.T, init, max int) *pool.ConnPool {
	t.Helper()
	config := pool.DefaultPoolConfig()
	config.InitSize = init
	config.MaxSize = max
	config.MaxIdle = time.Hour
	config.AcquireTimeout = 200 * time.Millisecond
	config.RetryBackoff = 5 * time.Millisecond

	p, err := pool.NewConnPool(context.Background(), config, &fakeDialer{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}
