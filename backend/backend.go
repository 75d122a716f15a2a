// Package backend provides the physical database connections consumed by
// the pool: MySQL, SQLite and PostgreSQL implementations of pool.Connection.
package backend

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// Supported driver names
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Options describes how to reach and authenticate against the database
type Options struct {
	Driver      string
	Host        string
	Port        int
	Username    string
	Password    string
	DBName      string
	DialTimeout time.Duration
}

// Addr returns host:port
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

type dialFunc func(ctx context.Context, opts Options) (pool.Connection, error)

var drivers = map[string]dialFunc{
	DriverMySQL:    dialMySQL,
	DriverSQLite:   dialSQLite,
	DriverPostgres: dialPostgres,
}

// Dialer opens connections for one configured database
type Dialer struct {
	opts Options
	dial dialFunc
}

// NewDialer returns a Dialer for opts.Driver
func NewDialer(opts Options) (*Dialer, error) {
	dial, ok := drivers[opts.Driver]
	if !ok {
		return nil, oops.
			Code("UNSUPPORTED_DRIVER").
			In("backend").
			With("driver", opts.Driver).
			Errorf("unsupported database driver %q", opts.Driver)
	}
	return &Dialer{opts: opts, dial: dial}, nil
}

// Options returns the options the dialer was built with
func (d *Dialer) Options() Options {
	return d.opts
}

// Dial performs connection establishment, bounded by DialTimeout if set
func (d *Dialer) Dial(ctx context.Context) (pool.Connection, error) {
	if d.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.DialTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := d.dial(ctx, d.opts)
	if err != nil {
		return nil, oops.
			Code("DIAL_FAILED").
			In("backend").
			With("driver", d.opts.Driver).
			With("address", d.opts.Addr()).
			With("database", d.opts.DBName).
			Wrapf(err, "failed to connect to %s", d.opts.Driver)
	}

	log.WithFields(logrus.Fields{
		"driver":   d.opts.Driver,
		"database": d.opts.DBName,
		"elapsed":  time.Since(start).String(),
	}).Debug("database connection established")
	return conn, nil
}
