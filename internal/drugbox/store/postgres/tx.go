package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UserByID(ctx context.Context, id int64) (store.UserRecord, error) {
	return scanUser(t.tx.QueryRow(ctx, `select `+userCols+` from users where id = $1`, id))
}

func (t *pgTx) UserByRFID(ctx context.Context, rfid string) (store.UserRecord, error) {
	return scanUser(t.tx.QueryRow(ctx, `select `+userCols+` from users where rfid_code = $1`, rfid))
}

func (t *pgTx) UserByFingerprint(ctx context.Context, fingerprintID int64) (store.UserRecord, error) {
	return scanUser(t.tx.QueryRow(ctx, `select `+userCols+` from users where fingerprint_id = $1`, fingerprintID))
}

func (t *pgTx) InsertUser(ctx context.Context, u store.UserRecord) (store.UserRecord, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return scanUser(t.tx.QueryRow(ctx, `
		insert into users (rfid_code, fingerprint_id, name, created_at)
		values ($1, $2, $3, $4)
		returning `+userCols,
		u.RFIDCode, u.FingerprintID, u.Name, u.CreatedAt.UTC()))
}

// DosageForUpdate takes a row lock; a concurrent consumer of the same row
// blocks here until this transaction ends.
func (t *pgTx) DosageForUpdate(ctx context.Context, userID int64, date string) (store.DosageRecord, error) {
	return scanDosage(t.tx.QueryRow(ctx, `
		select `+dosageCols+`
		from dosage_schedules
		where user_id = $1 and date = $2::date
		for update`, userID, date))
}

func (t *pgTx) InsertDosage(ctx context.Context, d store.DosageRecord) (store.DosageRecord, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return scanDosage(t.tx.QueryRow(ctx, `
		insert into dosage_schedules (user_id, date, amount, used, created_at)
		values ($1, $2::date, $3, false, $4)
		returning `+dosageCols,
		d.UserID, d.Date, d.Amount, d.CreatedAt.UTC()))
}

func (t *pgTx) MarkDosageUsed(ctx context.Context, dosageID int64, usedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		update dosage_schedules
		set used = true, used_at = $2
		where id = $1 and used = false`, dosageID, usedAt.UTC())
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t *pgTx) InsertEvent(ctx context.Context, e store.EventRecord) (store.EventRecord, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	err := t.tx.QueryRow(ctx, `
		insert into event_logs (
		  event_type, user_id, rfid_code, fingerprint_id,
		  status, message, request_id, event_time
		) values ($1, $2, nullif($3, ''), $4, $5, $6, nullif($7, ''), $8)
		returning id`,
		e.Type, e.UserID, e.RFIDCode, e.FingerprintID,
		e.Status, e.Message, e.RequestID, e.OccurredAt.UTC(),
	).Scan(&e.ID)
	if err != nil {
		return store.EventRecord{}, mapPgErr(err)
	}
	return e, nil
}
