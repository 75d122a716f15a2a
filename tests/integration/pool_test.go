package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	connpool "github.com/go-i2p/go-connpool"
	"github.com/go-i2p/go-connpool/backend"
)

func TestConnPoolIntegration(t *testing.T) {
	config := connpool.NewConfig().
		WithDriver(backend.DriverSQLite).
		WithDatabase(filepath.Join(t.TempDir(), "integration.db")).
		WithSizes(2, 8).
		WithMaxIdleTime(time.Minute).
		WithConnectionTimeout(2 * time.Second)

	ctx := context.Background()
	pool, err := connpool.Open(ctx, config)
	if err != nil {
		t.Fatalf("Failed to open pool: %v", err)
	}
	defer pool.Close()

	// Test 1: Create schema through a borrowed connection
	t.Run("create_table", func(t *testing.T) {
		conn, err := pool.Get()
		if err != nil {
			t.Fatalf("Failed to acquire: %v", err)
		}
		defer conn.Close()

		_, err = conn.Exec(ctx, "CREATE TABLE user (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, age INTEGER, sex TEXT)")
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	})

	// Test 2: Concurrent inserts from several workers
	t.Run("concurrent_inserts", func(t *testing.T) {
		const workers = 4
		const perWorker = 250

		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					conn, err := pool.Get()
					if err != nil {
						errs <- fmt.Errorf("worker %d: acquire: %w", id, err)
						continue
					}
					_, err = conn.Exec(ctx, "INSERT INTO user (name, age, sex) VALUES (?, ?, ?)", "zhang san", 20, "male")
					conn.Close()
					if err != nil {
						errs <- fmt.Errorf("worker %d: insert: %w", id, err)
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			// sqlite serializes writers; a busy error is tolerated, anything else is not
			t.Logf("insert error: %v", err)
		}

		stats := pool.Stats()
		t.Logf("Pool stats after inserts: %+v", stats)
		if stats["live"] > 8 {
			t.Errorf("Pool should not exceed MaxSize of 8, got %d", stats["live"])
		}
		if stats["in_use"] != 0 {
			t.Errorf("Expected no borrowed connections, got %d", stats["in_use"])
		}
	})

	// Test 3: Every connection sees the committed rows
	t.Run("read_back", func(t *testing.T) {
		conn, err := pool.Get()
		if err != nil {
			t.Fatalf("Failed to acquire: %v", err)
		}
		defer conn.Close()

		rows, err := conn.Query(ctx, "SELECT COUNT(*) FROM user WHERE name = ?", "zhang san")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		defer rows.Close()

		if !rows.Next() {
			t.Fatal("Expected one row")
		}
		var count int
		if err := rows.Scan(&count); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if count == 0 {
			t.Error("Expected inserted rows to be visible")
		}
	})

	// Test 4: Maintenance keeps live connections usable
	t.Run("maintenance_pass", func(t *testing.T) {
		before := pool.Stats()["live"]
		pool.RunMaintenance(ctx)

		after := pool.Stats()
		if after["live"] != before {
			t.Errorf("Fresh connections should survive maintenance: before %d, after %d", before, after["live"])
		}
		if pool.Metrics()["destroyed_dead"] != 0 {
			t.Errorf("No connection should have failed its probe")
		}
	})

	// Test 5: Shutdown waits for a borrowed connection
	t.Run("shutdown", func(t *testing.T) {
		conn, err := pool.Get()
		if err != nil {
			t.Fatalf("Failed to acquire: %v", err)
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			conn.Close()
		}()

		shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}
		if live := pool.Stats()["live"]; live != 0 {
			t.Errorf("Expected 0 live connections after shutdown, got %d", live)
		}
		if _, err := pool.Get(); err == nil {
			t.Error("Acquire should fail after shutdown")
		}
	})
}
