package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	RFIDCode      string  // default "RFID123456"
	FingerprintID int64   // default 12345
	Name          string  // default "Test User"
	Amount        float64 // default 2.5
	Date          string  // default today (UTC), YYYY-MM-DD
}

// SeedDev inserts a demo user and a dosage for today so a device can be
// exercised straight away. Re-running is a no-op.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.RFIDCode == "" {
		opt.RFIDCode = "RFID123456"
	}
	if opt.FingerprintID == 0 {
		opt.FingerprintID = 12345
	}
	if opt.Name == "" {
		opt.Name = "Test User"
	}
	if opt.Amount == 0 {
		opt.Amount = 2.5
	}
	if opt.Date == "" {
		opt.Date = time.Now().UTC().Format("2006-01-02")
	}

	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(rfid_code, fingerprint_id, name, created_at_ms)
VALUES (?, ?, ?, ?);`, opt.RFIDCode, opt.FingerprintID, opt.Name, now); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO dosage_schedules(user_id, date, amount, used, created_at_ms)
SELECT id, ?, ?, 0, ? FROM users WHERE rfid_code = ?;`,
		opt.Date, opt.Amount, now, opt.RFIDCode); err != nil {
		return fmt.Errorf("seed dosage: %w", err)
	}

	return nil
}
