package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-i2p/go-connpool/pool"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDSN builds the data source name. DBName is the database file path;
// an empty name opens a private in-memory database per connection.
func SQLiteDSN(opts Options) string {
	dsn := opts.DBName
	if dsn == "" {
		dsn = ":memory:"
	}
	if opts.DialTimeout > 0 && !strings.Contains(dsn, "?") {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", dsn, opts.DialTimeout.Milliseconds())
	}
	return dsn
}

func dialSQLite(ctx context.Context, opts Options) (pool.Connection, error) {
	db, err := sql.Open(DriverSQLite, SQLiteDSN(opts))
	if err != nil {
		return nil, err
	}
	return newSQLConn(ctx, db)
}
