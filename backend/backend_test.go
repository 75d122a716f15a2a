package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialer(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"mysql", DriverMySQL, false},
		{"sqlite3", DriverSQLite, false},
		{"postgres", DriverPostgres, false},
		{"unknown", "oracle", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDialer(Options{Driver: tt.driver})
			if tt.wantErr {
				require.Error(t, err)
				oopsErr, ok := err.(oops.OopsError)
				require.True(t, ok)
				assert.Equal(t, "UNSUPPORTED_DRIVER", oopsErr.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.Options().Driver)
		})
	}
}

func TestSQLiteConnection(t *testing.T) {
	d, err := NewDialer(Options{
		Driver: DriverSQLite,
		DBName: filepath.Join(t.TempDir(), "pool.db"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	conn, err := d.Dial(ctx)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, `CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT, age INTEGER, sex TEXT)`)
	require.NoError(t, err)

	n, err := conn.Exec(ctx, `INSERT INTO user (name, age, sex) VALUES (?, ?, ?)`, "zhang san", 20, "male")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := conn.Query(ctx, `SELECT name, age FROM user`)
	require.NoError(t, err)
	require.True(t, rows.Next())
	var name string
	var age int
	require.NoError(t, rows.Scan(&name, &age))
	assert.Equal(t, "zhang san", name)
	assert.Equal(t, 20, age)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	_, err = conn.Exec(ctx, `INSERT INTO missing VALUES (1)`)
	assert.Error(t, err, "statement failure is reported to the caller")
	assert.NoError(t, conn.Ping(ctx), "a failed statement leaves the connection usable")

	require.NoError(t, conn.Close())
	assert.Error(t, conn.Ping(ctx), "ping after close should fail")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", SQLiteDSN(Options{}))
	assert.Equal(t, "app.db?_busy_timeout=1500", SQLiteDSN(Options{DBName: "app.db", DialTimeout: 1500 * time.Millisecond}))
	assert.Equal(t, "file:app.db?mode=ro", SQLiteDSN(Options{DBName: "file:app.db?mode=ro", DialTimeout: time.Second}))
}

func TestMySQLConfig(t *testing.T) {
	cfg := MySQLConfig(Options{
		Host:        "127.0.0.1",
		Port:        3306,
		Username:    "pool_user",
		Password:    "PoolPassword123!",
		DBName:      "my_project_db",
		DialTimeout: 2 * time.Second,
	})

	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
	assert.Equal(t, "pool_user", cfg.User)
	assert.Equal(t, "PoolPassword123!", cfg.Passwd)
	assert.Equal(t, "my_project_db", cfg.DBName)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Contains(t, cfg.FormatDSN(), "tcp(127.0.0.1:3306)/my_project_db")
}

func TestPostgresConfig(t *testing.T) {
	cfg, err := PostgresConfig(Options{
		Host:        "db.internal",
		Port:        5432,
		Username:    "app",
		Password:    "p@ss word",
		DBName:      "orders",
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, uint16(5432), cfg.Port)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss word", cfg.Password)
	assert.Equal(t, "orders", cfg.Database)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
}

func TestDialFailure(t *testing.T) {
	d, err := NewDialer(Options{
		Driver:      DriverMySQL,
		Host:        "127.0.0.1",
		Port:        1,
		Username:    "nobody",
		DBName:      "none",
		DialTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	conn, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Nil(t, conn)

	oopsErr, ok := err.(oops.OopsError)
	require.True(t, ok)
	assert.Equal(t, "DIAL_FAILED", oopsErr.Code())
}
