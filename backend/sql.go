package backend

import (
	"context"
	"database/sql"

	"github.com/go-i2p/go-connpool/pool"
)

// sqlConn pins exactly one physical connection of a database/sql handle.
// The *sql.DB is capped at a single open connection so closing both tears
// the physical connection down instead of parking it in database/sql's own
// idle list.
type sqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func newSQLConn(ctx context.Context, db *sql.DB) (*sqlConn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}
	return &sqlConn{db: db, conn: conn}, nil
}

func (c *sqlConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := c.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlConn) Query(ctx context.Context, stmt string, args ...any) (pool.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

func (c *sqlConn) Close() error {
	connErr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return connErr
}
