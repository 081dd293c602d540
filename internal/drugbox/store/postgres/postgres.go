package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// Store is the PostgreSQL backend. Transactions run at READ COMMITTED and
// rely on row locks (FOR UPDATE) plus conditional updates for consumption.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithinTx(ctx context.Context, fn store.TxFn) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return mapPgErr(tx.Commit(ctx))
}

const userCols = `id, rfid_code, fingerprint_id, name, created_at`

const dosageCols = `id, user_id, to_char(date, 'YYYY-MM-DD'), amount, used, used_at, created_at`

func (s *Store) GetUser(ctx context.Context, id int64) (store.UserRecord, error) {
	return scanUser(s.pool.QueryRow(ctx, `select `+userCols+` from users where id = $1`, id))
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]store.UserRecord, error) {
	q := `select ` + userCols + ` from users order by id`
	var args []any
	if limit > 0 {
		q += ` limit $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var out []store.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Store) ListDosages(ctx context.Context, f store.DosageFilter) ([]store.DosageRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		where = append(where, fmt.Sprintf("date = $%d::date", len(args)))
	}

	q := `select ` + dosageCols + ` from dosage_schedules`
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, " and ")
	}
	q += ` order by date, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" limit $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var out []store.DosageRecord
	for rows.Next() {
		d, err := scanDosage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Store) ListEvents(ctx context.Context, f store.EventFilter) ([]store.EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	q := `
		select id, event_type, user_id, coalesce(rfid_code, ''), fingerprint_id,
		       status, message, coalesce(request_id, ''), event_time
		from event_logs`
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, " and ")
	}
	q += ` order by event_time desc, id desc`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" limit $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var out []store.EventRecord
	for rows.Next() {
		var e store.EventRecord
		if err := rows.Scan(&e.ID, &e.Type, &e.UserID, &e.RFIDCode, &e.FingerprintID,
			&e.Status, &e.Message, &e.RequestID, &e.OccurredAt); err != nil {
			return nil, mapPgErr(err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		out = append(out, e)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Store) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `delete from event_logs where event_time < $1`, cutoff.UTC())
	if err != nil {
		return 0, mapPgErr(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (store.UserRecord, error) {
	var u store.UserRecord
	if err := row.Scan(&u.ID, &u.RFIDCode, &u.FingerprintID, &u.Name, &u.CreatedAt); err != nil {
		return store.UserRecord{}, mapPgErr(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func scanDosage(row pgx.Row) (store.DosageRecord, error) {
	var d store.DosageRecord
	if err := row.Scan(&d.ID, &d.UserID, &d.Date, &d.Amount, &d.Used, &d.UsedAt, &d.CreatedAt); err != nil {
		return store.DosageRecord{}, mapPgErr(err)
	}
	if d.UsedAt != nil {
		t := d.UsedAt.UTC()
		d.UsedAt = &t
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrNotFound
		case "40001", "40P01":
			// Serialization failure or deadlock: someone else won the row.
			return store.ErrConflict
		default:
			return fmt.Errorf("db_error %s: %s", pgErr.Code, pgErr.Message)
		}
	}
	return err
}
