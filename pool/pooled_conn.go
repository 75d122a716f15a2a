package pool

import (
	"time"

	"github.com/go-i2p/go-connpool/internal"
)

// PooledConn represents a connection owned by the pool with metadata.
// All fields are guarded by the owning pool's mutex while the connection
// is in the queue; otherwise they belong to whoever holds it.
type PooledConn struct {
	Conn       Connection
	ID         uint64
	Created    time.Time
	ReturnedAt time.Time // instant the connection last became idle
	State      internal.ConnState
}

func newPooledConn(id uint64, conn Connection, now time.Time) *PooledConn {
	return &PooledConn{
		Conn:       conn,
		ID:         id,
		Created:    now,
		ReturnedAt: now,
		State:      internal.StateIdle,
	}
}

// refreshIdle marks the connection idle as of now
func (pc *PooledConn) refreshIdle(now time.Time) {
	pc.ReturnedAt = now
	pc.State = internal.StateIdle
}

// IdleDuration returns how long the connection has been idle
func (pc *PooledConn) IdleDuration(now time.Time) time.Duration {
	return now.Sub(pc.ReturnedAt)
}
