package connpool

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/samber/oops"
)

// DefaultConfigPath is read by Default when ConfigPathEnv is unset
const DefaultConfigPath = "mysql.ini"

// ConfigPathEnv names the environment variable overriding DefaultConfigPath
const ConfigPathEnv = "CONNPOOL_CONFIG"

var (
	// defaultMu guards defaultPool and globalShutdownManager
	defaultMu sync.Mutex

	// defaultPool is the process-wide pool returned by Default
	defaultPool *pool.ConnPool

	// globalShutdownManager is the default shutdown manager for coordinated shutdown
	globalShutdownManager *ShutdownManager
)

// init initializes the global shutdown manager with default settings
func init() {
	globalShutdownManager = NewShutdownManager(30 * time.Second)
}

// Default returns the process-wide pool, constructing it on first use from
// the file named by CONNPOOL_CONFIG (or mysql.ini). A load or open failure
// is returned to the caller and nothing is cached, so a later call retries.
// Once the global shutdown manager has shut down, Default fails with
// ErrPoolClosed until a new manager is installed.
func Default() (*pool.ConnPool, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		return defaultPool, nil
	}

	sm := globalShutdownManager
	if sm != nil && sm.Context().Err() != nil {
		return nil, oops.
			Code("POOL_CLOSED").
			In("connpool").
			Wrapf(pool.ErrPoolClosed, "default pool unavailable after shutdown")
	}

	p, err := OpenFile(context.Background(), defaultConfigPath())
	if err != nil {
		return nil, err
	}

	if sm != nil && !sm.RegisterPool(p) {
		p.Close()
		return nil, oops.
			Code("POOL_CLOSED").
			In("connpool").
			Wrapf(pool.ErrPoolClosed, "shutdown began while opening the default pool")
	}
	defaultPool = p
	return p, nil
}

func defaultConfigPath() string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}
	return DefaultConfigPath
}

// SetDefault installs p as the process-wide pool. A previous default pool
// is closed. Passing nil clears the default so the next Default call loads
// the configuration again.
func SetDefault(p *pool.ConnPool) {
	defaultMu.Lock()
	previous := defaultPool
	defaultPool = p
	sm := globalShutdownManager
	defaultMu.Unlock()

	if previous != nil && previous != p {
		if sm != nil {
			sm.UnregisterPool(previous)
		}
		previous.Close()
	}
	if p != nil && sm != nil {
		sm.RegisterPool(p)
	}
}

// forgetDefaultPool clears the default pool if it is among the closed pools
func forgetDefaultPool(closed []*pool.ConnPool) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	for _, p := range closed {
		if p == defaultPool {
			defaultPool = nil
			return
		}
	}
}

// SetGlobalShutdownManager sets a custom shutdown manager.
// The previous shutdown manager will be shut down gracefully.
func SetGlobalShutdownManager(sm *ShutdownManager) {
	defaultMu.Lock()
	previous := globalShutdownManager
	globalShutdownManager = sm
	defaultMu.Unlock()

	if previous != nil {
		previous.Shutdown()
	}
}

// GetGlobalShutdownManager returns the current global shutdown manager.
func GetGlobalShutdownManager() *ShutdownManager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return globalShutdownManager
}

// GracefulShutdown closes every pool registered with the global shutdown
// manager, including the default pool.
func GracefulShutdown() error {
	if sm := GetGlobalShutdownManager(); sm != nil {
		return sm.Shutdown()
	}
	return nil
}
