package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	dbpkg "github.com/BrandonDHaskell/drugbox/internal/db"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// Store is the SQLite backend. Reads go straight to db; every transaction is
// funnelled through writer so read-check-update sequences are serialised.
type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{db: db, writer: writer}
}

func (s *Store) WithinTx(ctx context.Context, fn store.TxFn) error {
	return s.writer.Do(ctx, func(ctx context.Context, stx *sql.Tx) error {
		return fn(ctx, &tx{tx: stx})
	})
}

func (s *Store) GetUser(ctx context.Context, id int64) (store.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, rfid_code, fingerprint_id, name, created_at_ms
FROM users WHERE id = ?;`, id)
	u, err := scanUser(row)
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]store.UserRecord, error) {
	q := `SELECT id, rfid_code, fingerprint_id, name, created_at_ms FROM users ORDER BY id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer rows.Close()

	var out []store.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ListDosages(ctx context.Context, f store.DosageFilter) ([]store.DosageRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Date != "" {
		where = append(where, "date = ?")
		args = append(args, f.Date)
	}

	q := `SELECT id, user_id, date, amount, used, used_at_ms, created_at_ms FROM dosage_schedules`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListDosages: %w", err)
	}
	defer rows.Close()

	var out []store.DosageRecord
	for rows.Next() {
		d, err := scanDosage(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDosages scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close stops the writer. The *sql.DB belongs to the caller.
func (s *Store) Close() error {
	s.writer.Close()
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(r scanner) (store.UserRecord, error) {
	var (
		u         store.UserRecord
		createdMs int64
	)
	if err := r.Scan(&u.ID, &u.RFIDCode, &u.FingerprintID, &u.Name, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.UserRecord{}, store.ErrNotFound
		}
		return store.UserRecord{}, err
	}
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return u, nil
}

func scanDosage(r scanner) (store.DosageRecord, error) {
	var (
		d         store.DosageRecord
		used      int
		usedMs    sql.NullInt64
		createdMs int64
	)
	if err := r.Scan(&d.ID, &d.UserID, &d.Date, &d.Amount, &used, &usedMs, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.DosageRecord{}, store.ErrNotFound
		}
		return store.DosageRecord{}, err
	}
	d.Used = used != 0
	if usedMs.Valid {
		t := time.UnixMilli(usedMs.Int64).UTC()
		d.UsedAt = &t
	}
	d.CreatedAt = time.UnixMilli(createdMs).UTC()
	return d, nil
}

// mapConstraint turns SQLite constraint failures into store sentinels.
func mapConstraint(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}
