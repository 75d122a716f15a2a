// Package connpool opens bounded, self-healing pools of database
// connections from a configuration file or a Config value.
//
// The pool itself lives in package pool; concrete drivers live in package
// backend. This package wires them together and provides a process-wide
// default pool for callers that do not want to pass one around.
package connpool

import (
	"context"
	"time"

	"github.com/go-i2p/go-connpool/backend"
	"github.com/go-i2p/go-connpool/pool"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// dialRetryBackoff is the base delay between dial retries
const dialRetryBackoff = 100 * time.Millisecond

// Open builds a dialer for cfg and starts a pool on it.
// ctx bounds only the initial fill.
func Open(ctx context.Context, cfg *Config) (*pool.ConnPool, error) {
	if cfg == nil {
		return nil, oops.
			Code("INVALID_CONFIG").
			In("connpool").
			Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	p, err := pool.NewConnPool(ctx, cfg.PoolConfig(), dialer)
	if err != nil {
		return nil, oops.
			Code("POOL_OPEN_FAILED").
			In("connpool").
			With("driver", cfg.Driver).
			With("database", cfg.DBName).
			Wrapf(err, "failed to open connection pool")
	}

	log.WithFields(logrus.Fields{
		"driver":      cfg.Driver,
		"address":     cfg.BackendOptions().Addr(),
		"database":    cfg.DBName,
		"username":    cfg.Username,
		"fingerprint": cfg.Fingerprint(),
		"init_size":   cfg.InitSize,
		"max_size":    cfg.MaxSize,
	}).Info("opened database connection pool")

	return p, nil
}

// OpenFile loads a configuration file and opens a pool from it
func OpenFile(ctx context.Context, path string) (*pool.ConnPool, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

// newDialer selects the backend and wraps it with retries when configured
func newDialer(cfg *Config) (pool.Dialer, error) {
	d, err := backend.NewDialer(cfg.BackendOptions())
	if err != nil {
		return nil, err
	}
	if cfg.DialRetries == 0 {
		return d, nil
	}
	return NewRetryDialer(d, cfg.DialRetries, dialRetryBackoff), nil
}
