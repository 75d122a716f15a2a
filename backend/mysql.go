package backend

import (
	"context"
	"database/sql"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/go-sql-driver/mysql"
)

// MySQLConfig converts Options into a driver configuration
func MySQLConfig(opts Options) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = opts.Addr()
	cfg.User = opts.Username
	cfg.Passwd = opts.Password
	cfg.DBName = opts.DBName
	cfg.ParseTime = true
	if opts.DialTimeout > 0 {
		cfg.Timeout = opts.DialTimeout
	}
	return cfg
}

func dialMySQL(ctx context.Context, opts Options) (pool.Connection, error) {
	connector, err := mysql.NewConnector(MySQLConfig(opts))
	if err != nil {
		return nil, err
	}
	return newSQLConn(ctx, sql.OpenDB(connector))
}
