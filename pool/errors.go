package pool

import "errors"

var (
	// ErrPoolExhausted is returned when no idle connection became available
	// within the acquire timeout
	ErrPoolExhausted = errors.New("no connection available")

	// ErrPoolClosed is returned by operations on a closed pool
	ErrPoolClosed = errors.New("pool is closed")

	// ErrConnReleased is returned when a wrapper is used after Close
	ErrConnReleased = errors.New("connection already returned to pool")
)
