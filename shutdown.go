package connpool

import (
	"context"
	"sync"
	"time"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// ShutdownManager coordinates graceful shutdown of connection pools.
// It stops every registered pool from handing out connections, then waits
// for borrowed connections to come back within a configurable timeout.
type ShutdownManager struct {
	// ctx is the context for shutdown signaling
	ctx context.Context

	// cancel cancels the shutdown context
	cancel context.CancelFunc

	// pools tracks registered pools
	pools map[*pool.ConnPool]struct{}

	// mu protects the pool map
	mu sync.RWMutex

	// shutdownTimeout is the maximum time to wait for borrowed connections
	shutdownTimeout time.Duration

	// logger for shutdown events
	logger *logger.Logger

	// done signals when shutdown is complete
	done chan struct{}

	// once ensures shutdown only happens once
	once sync.Once
}

// NewShutdownManager creates a new shutdown manager with the given timeout.
// If timeout is 0, a default of 30 seconds is used.
func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ShutdownManager{
		ctx:             ctx,
		cancel:          cancel,
		pools:           make(map[*pool.ConnPool]struct{}),
		shutdownTimeout: timeout,
		logger:          log,
		done:            make(chan struct{}),
	}
}

// RegisterPool adds a pool to be closed during shutdown. It returns false,
// leaving the pool unregistered, once shutdown has begun.
func (sm *ShutdownManager) RegisterPool(p *pool.ConnPool) bool {
	if p == nil {
		return false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.ctx.Err() != nil {
		sm.logger.Warn("pool registered after shutdown began")
		return false
	}

	sm.pools[p] = struct{}{}
	sm.logger.WithField("total_pools", len(sm.pools)).Debug("registered pool for shutdown management")
	return true
}

// UnregisterPool removes a pool from shutdown management.
func (sm *ShutdownManager) UnregisterPool(p *pool.ConnPool) {
	if p == nil {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.pools, p)
	sm.logger.WithField("total_pools", len(sm.pools)).Debug("unregistered pool from shutdown management")
}

// Context returns the shutdown context for monitoring shutdown signals.
func (sm *ShutdownManager) Context() context.Context {
	return sm.ctx
}

// Shutdown closes every registered pool and waits for their borrowed
// connections to be returned, up to the shutdown timeout.
func (sm *ShutdownManager) Shutdown() error {
	var shutdownErr error

	sm.once.Do(func() {
		defer close(sm.done)

		sm.logShutdownInitiation()
		sm.cancel()

		shutdownErr = sm.executeShutdownSequence()
		sm.logger.Info("graceful shutdown complete")
	})

	return shutdownErr
}

// logShutdownInitiation logs the start of the shutdown process with current state.
func (sm *ShutdownManager) logShutdownInitiation() {
	sm.mu.RLock()
	count := len(sm.pools)
	sm.mu.RUnlock()

	sm.logger.WithFields(logrus.Fields{
		"timeout": sm.shutdownTimeout.String(),
		"pools":   count,
	}).Info("initiating graceful shutdown")
}

// executeShutdownSequence closes all pools first so no waiter keeps a
// connection alive, then drains them against one shared deadline.
func (sm *ShutdownManager) executeShutdownSequence() error {
	pools := sm.snapshotPools()

	shutdownErr := sm.closePools(pools)
	if shutdownErr != nil {
		sm.logger.WithError(shutdownErr).Error("error closing pools during shutdown")
	}

	if err := sm.waitForPoolsDrain(pools); err != nil {
		sm.logger.WithError(err).Warn("timeout waiting for borrowed connections")
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	forgetDefaultPool(pools)
	return shutdownErr
}

// snapshotPools copies the registered pools
func (sm *ShutdownManager) snapshotPools() []*pool.ConnPool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	pools := make([]*pool.ConnPool, 0, len(sm.pools))
	for p := range sm.pools {
		pools = append(pools, p)
	}
	return pools
}

// closePools closes every pool, returning the first error
func (sm *ShutdownManager) closePools(pools []*pool.ConnPool) error {
	var firstError error
	for _, p := range pools {
		if err := p.Close(); err != nil {
			sm.logger.WithError(err).Error("error closing pool during shutdown")
			if firstError == nil {
				firstError = err
			}
		}
	}
	return firstError
}

// waitForPoolsDrain waits for borrowed connections in every pool
func (sm *ShutdownManager) waitForPoolsDrain(pools []*pool.ConnPool) error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	for _, p := range pools {
		if err := p.Shutdown(ctx); err != nil {
			return oops.
				Code("SHUTDOWN_TIMEOUT").
				In("shutdown").
				With("timeout", sm.shutdownTimeout.String()).
				Wrapf(err, "timeout waiting for pools to drain")
		}
	}
	return nil
}

// Wait blocks until shutdown is complete.
func (sm *ShutdownManager) Wait() {
	<-sm.done
}
