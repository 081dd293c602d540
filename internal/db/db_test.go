package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenMemory(context.Background(), "dbtest_"+t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpenMemory_AppliesMigrations(t *testing.T) {
	conn := openTestDB(t)

	for _, table := range []string{"users", "dosage_schedules", "event_logs"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// Running again is a no-op.
	require.NoError(t, Migrate(context.Background(), conn, DialectSQLite))
}

func TestMigrate_UnknownDialect(t *testing.T) {
	conn := openTestDB(t)
	err := Migrate(context.Background(), conn, Dialect("oracle"))
	assert.Error(t, err)
}

func TestSeedDev_Idempotent(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	opt := SeedDevOptions{Date: "2024-01-15"}

	require.NoError(t, SeedDev(ctx, conn, opt))
	require.NoError(t, SeedDev(ctx, conn, opt))

	var users, dosages int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM dosage_schedules`).Scan(&dosages))
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, dosages)

	var amount float64
	require.NoError(t, conn.QueryRow(`
SELECT d.amount FROM dosage_schedules d JOIN users u ON u.id = d.user_id
WHERE u.rfid_code = 'RFID123456' AND d.date = '2024-01-15'`).Scan(&amount))
	assert.Equal(t, 2.5, amount)
}

func TestWorker_CommitAndRollback(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms) VALUES ('A', 1, '', 0)`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms) VALUES ('B', 2, '', 0)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWorker_PanicRollsBack(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	defer w.Close()

	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, _ = tx.ExecContext(ctx, `INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms) VALUES ('A', 1, '', 0)`)
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestWorker_SerializesConcurrentJobs(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	require.NoError(t, w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms) VALUES ('A', 0, '', 0)`)
		return err
	}))

	// Read-modify-write inside one job must never lose an update.
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
				var fp int64
				if err := tx.QueryRowContext(ctx, `SELECT fingerprint_id FROM users WHERE rfid_code='A'`).Scan(&fp); err != nil {
					return err
				}
				_, err := tx.ExecContext(ctx, `UPDATE users SET fingerprint_id=? WHERE rfid_code='A'`, fp+1)
				return err
			})
		}()
	}
	wg.Wait()

	var fp int64
	require.NoError(t, conn.QueryRow(`SELECT fingerprint_id FROM users WHERE rfid_code='A'`).Scan(&fp))
	assert.Equal(t, int64(n), fp)
}

func TestWorker_DoAfterClose(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerClosed)
}

func TestWorker_CancelledContext(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := w.Do(ctx, func(context.Context, *sql.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWorker_CancelDuringTxRollsBack(t *testing.T) {
	conn := openTestDB(t)
	w := NewWorker(conn)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms) VALUES ('A', 1, '', 0)`); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)
}
