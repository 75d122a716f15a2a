package pool

import (
	"time"

	"github.com/samber/oops"
)

// PoolConfig configures a connection pool
type PoolConfig struct {
	InitSize        int           // Target floor of live connections kept idle
	MaxSize         int           // Hard cap on live connections, idle or borrowed
	MaxIdle         time.Duration // Idle eviction threshold and maintenance period, 0 disables maintenance
	AcquireTimeout  time.Duration // Bounded wait for callers, 0 means try once without waiting
	ProbeTimeout    time.Duration // Deadline for a single liveness probe
	RetryBackoff    time.Duration // Base producer delay after a failed creation
	MaxRetryBackoff time.Duration // Cap for the producer delay, 0 means 30s
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		InitSize:        10,
		MaxSize:         1024,
		MaxIdle:         60 * time.Second,
		AcquireTimeout:  100 * time.Millisecond,
		ProbeTimeout:    3 * time.Second,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// Validate checks the sizes and durations for consistency.
// InitSize == MaxSize == 0 is accepted: such a pool never holds a
// connection and every acquire times out.
func (c *PoolConfig) Validate() error {
	if c.InitSize < 0 || c.MaxSize < 0 {
		return oops.
			Code("INVALID_POOL_CONFIG").
			In("pool").
			With("init_size", c.InitSize).
			With("max_size", c.MaxSize).
			Errorf("pool sizes must be non-negative")
	}

	if c.InitSize > c.MaxSize {
		return oops.
			Code("INVALID_POOL_CONFIG").
			In("pool").
			With("init_size", c.InitSize).
			With("max_size", c.MaxSize).
			Errorf("init size must not exceed max size")
	}

	if c.MaxIdle < 0 || c.AcquireTimeout < 0 || c.ProbeTimeout < 0 ||
		c.RetryBackoff < 0 || c.MaxRetryBackoff < 0 {
		return oops.
			Code("INVALID_POOL_CONFIG").
			In("pool").
			With("max_idle", c.MaxIdle).
			With("acquire_timeout", c.AcquireTimeout).
			With("probe_timeout", c.ProbeTimeout).
			Errorf("durations must be non-negative")
	}

	return nil
}
