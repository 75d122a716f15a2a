package pool

import (
	"context"
)

// Connection is the capability the pool needs from a physical database
// connection. Implementations are not required to be safe for concurrent
// use; the pool hands each Connection to exactly one owner at a time.
type Connection interface {
	// Exec runs a mutating statement and returns the number of affected rows
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	// Query runs a statement that returns rows
	Query(ctx context.Context, stmt string, args ...any) (Rows, error)
	// Ping performs a lightweight liveness round-trip
	Ping(ctx context.Context) error
	// Close tears down the physical connection
	Close() error
}

// Rows is the result handle returned by Connection.Query
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Dialer establishes new physical connections (handshake and authentication)
type Dialer interface {
	Dial(ctx context.Context) (Connection, error)
}

// DialFunc adapts a plain function to the Dialer interface
type DialFunc func(ctx context.Context) (Connection, error)

// Dial calls f(ctx)
func (f DialFunc) Dial(ctx context.Context) (Connection, error) {
	return f(ctx)
}
