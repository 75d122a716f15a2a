package backend

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/go-i2p/go-connpool/pool"
	"github.com/jackc/pgx/v5"
)

// pgCloseTimeout bounds the graceful terminate message sent on Close
const pgCloseTimeout = 5 * time.Second

// PostgresURL builds a postgres:// connection URL from Options
func PostgresURL(opts Options) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(opts.Username, opts.Password),
		Host:   opts.Addr(),
		Path:   "/" + opts.DBName,
	}
	if opts.DialTimeout > 0 {
		secs := int(opts.DialTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		u.RawQuery = url.Values{"connect_timeout": {strconv.Itoa(secs)}}.Encode()
	}
	return u.String()
}

// PostgresConfig converts Options into a pgx connection configuration
func PostgresConfig(opts Options) (*pgx.ConnConfig, error) {
	return pgx.ParseConfig(PostgresURL(opts))
}

type pgConn struct {
	conn *pgx.Conn
}

func dialPostgres(ctx context.Context, opts Options) (pool.Connection, error) {
	cfg, err := PostgresConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgConn{conn: conn}, nil
}

func (c *pgConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgConn) Query(ctx context.Context, stmt string, args ...any) (pool.Rows, error) {
	rows, err := c.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return &pgRows{Rows: rows}, nil
}

func (c *pgConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *pgConn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pgCloseTimeout)
	defer cancel()
	return c.conn.Close(ctx)
}

// pgRows adapts pgx.Rows, whose Close reports nothing, to pool.Rows
type pgRows struct {
	pgx.Rows
}

func (r *pgRows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}
