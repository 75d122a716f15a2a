package pool

import (
	"context"
	"sync"

	"github.com/samber/oops"
)

// PoolConnWrapper is the caller's exclusive handle on a borrowed connection.
// Close returns the connection to the pool and is the only way back into it.
// After Close every other method fails with ErrConnReleased.
//
// Rows returned by Query must be closed before the wrapper is closed.
type PoolConnWrapper struct {
	mu   sync.Mutex
	pc   *PooledConn
	pool *ConnPool
	id   uint64
}

func newPoolConnWrapper(p *ConnPool, pc *PooledConn) *PoolConnWrapper {
	return &PoolConnWrapper{pc: pc, pool: p, id: pc.ID}
}

// ID returns the pool-assigned identifier of the underlying connection
func (w *PoolConnWrapper) ID() uint64 {
	return w.id
}

// Exec runs a mutating statement on the borrowed connection.
// A failed statement does not mark the connection dead.
func (w *PoolConnWrapper) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pc == nil {
		return 0, w.releasedError("exec")
	}
	return w.pc.Conn.Exec(ctx, stmt, args...)
}

// Query runs a row-returning statement on the borrowed connection
func (w *PoolConnWrapper) Query(ctx context.Context, stmt string, args ...any) (Rows, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pc == nil {
		return nil, w.releasedError("query")
	}
	return w.pc.Conn.Query(ctx, stmt, args...)
}

// Ping checks the borrowed connection is still usable
func (w *PoolConnWrapper) Ping(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pc == nil {
		return w.releasedError("ping")
	}
	return w.pc.Conn.Ping(ctx)
}

// Close returns the connection to the pool instead of closing it.
// Calling Close more than once is a no-op.
func (w *PoolConnWrapper) Close() error {
	w.mu.Lock()
	pc := w.pc
	w.pc = nil
	w.mu.Unlock()

	if pc == nil {
		return nil
	}
	w.pool.release(pc)
	return nil
}

func (w *PoolConnWrapper) releasedError(op string) error {
	return oops.
		Code("CONN_RELEASED").
		In("pool").
		With("conn_id", w.id).
		With("op", op).
		Wrap(ErrConnReleased)
}
