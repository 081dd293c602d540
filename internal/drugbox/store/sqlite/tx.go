package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

type tx struct {
	tx *sql.Tx
}

func (t *tx) userWhere(ctx context.Context, cond string, arg any) (store.UserRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, rfid_code, fingerprint_id, name, created_at_ms
FROM users WHERE `+cond+`;`, arg)
	return scanUser(row)
}

func (t *tx) UserByID(ctx context.Context, id int64) (store.UserRecord, error) {
	return t.userWhere(ctx, "id = ?", id)
}

func (t *tx) UserByRFID(ctx context.Context, rfid string) (store.UserRecord, error) {
	return t.userWhere(ctx, "rfid_code = ?", rfid)
}

func (t *tx) UserByFingerprint(ctx context.Context, fingerprintID int64) (store.UserRecord, error) {
	return t.userWhere(ctx, "fingerprint_id = ?", fingerprintID)
}

func (t *tx) InsertUser(ctx context.Context, u store.UserRecord) (store.UserRecord, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO users(rfid_code, fingerprint_id, name, created_at_ms)
VALUES (?, ?, ?, ?);`, u.RFIDCode, u.FingerprintID, u.Name, u.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("InsertUser: %w", mapConstraint(err))
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return store.UserRecord{}, fmt.Errorf("InsertUser id: %w", err)
	}
	u.CreatedAt = time.UnixMilli(u.CreatedAt.UTC().UnixMilli()).UTC()
	return u, nil
}

// DosageForUpdate is a plain read: the writer already serialises every
// transaction against this database.
func (t *tx) DosageForUpdate(ctx context.Context, userID int64, date string) (store.DosageRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, user_id, date, amount, used, used_at_ms, created_at_ms
FROM dosage_schedules WHERE user_id = ? AND date = ?;`, userID, date)
	return scanDosage(row)
}

func (t *tx) InsertDosage(ctx context.Context, d store.DosageRecord) (store.DosageRecord, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO dosage_schedules(user_id, date, amount, used, created_at_ms)
VALUES (?, ?, ?, 0, ?);`, d.UserID, d.Date, d.Amount, d.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return store.DosageRecord{}, fmt.Errorf("InsertDosage: %w", mapConstraint(err))
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return store.DosageRecord{}, fmt.Errorf("InsertDosage id: %w", err)
	}
	d.CreatedAt = time.UnixMilli(d.CreatedAt.UTC().UnixMilli()).UTC()
	return d, nil
}

func (t *tx) MarkDosageUsed(ctx context.Context, dosageID int64, usedAt time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE dosage_schedules SET used = 1, used_at_ms = ?
WHERE id = ? AND used = 0;`, usedAt.UTC().UnixMilli(), dosageID)
	if err != nil {
		return fmt.Errorf("MarkDosageUsed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkDosageUsed rows: %w", err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t *tx) InsertEvent(ctx context.Context, e store.EventRecord) (store.EventRecord, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO event_logs(
  event_type, user_id, rfid_code, fingerprint_id,
  status, message, request_id, event_time_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		e.Type, nullInt(e.UserID), nullString(e.RFIDCode), nullInt(e.FingerprintID),
		e.Status, e.Message, nullString(e.RequestID), e.OccurredAt.UTC().UnixMilli(),
	)
	if err != nil {
		return store.EventRecord{}, fmt.Errorf("InsertEvent: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return store.EventRecord{}, fmt.Errorf("InsertEvent id: %w", err)
	}
	return e, nil
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
