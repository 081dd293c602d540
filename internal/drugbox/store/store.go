package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

// DateLayout is the canonical calendar-date format used for dosage dates.
const DateLayout = "2006-01-02"

type UserRecord struct {
	ID            int64
	RFIDCode      string
	FingerprintID int64
	Name          string
	CreatedAt     time.Time
}

type DosageRecord struct {
	ID        int64
	UserID    int64
	Date      string // YYYY-MM-DD
	Amount    float64
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Tx is the set of operations available inside one store transaction.
// Every state change and the event describing it are written through the
// same Tx so they commit together.
type Tx interface {
	UserByID(ctx context.Context, id int64) (UserRecord, error)
	UserByRFID(ctx context.Context, rfid string) (UserRecord, error)
	UserByFingerprint(ctx context.Context, fingerprintID int64) (UserRecord, error)
	// InsertUser returns ErrConflict if the RFID or fingerprint is taken.
	InsertUser(ctx context.Context, u UserRecord) (UserRecord, error)

	// DosageForUpdate loads the dosage for (user, date) and holds it against
	// concurrent consumption until the transaction ends.
	DosageForUpdate(ctx context.Context, userID int64, date string) (DosageRecord, error)
	// InsertDosage returns ErrConflict if (user, date) already has a dosage.
	InsertDosage(ctx context.Context, d DosageRecord) (DosageRecord, error)
	// MarkDosageUsed flips used false->true. ErrConflict if it was already used.
	MarkDosageUsed(ctx context.Context, dosageID int64, usedAt time.Time) error

	InsertEvent(ctx context.Context, e EventRecord) (EventRecord, error)
}

type TxFn func(ctx context.Context, tx Tx) error

// Store is implemented by every backend (memory, sqlite, postgres).
type Store interface {
	// WithinTx runs fn in a single transaction. A non-nil error from fn
	// rolls everything back.
	WithinTx(ctx context.Context, fn TxFn) error

	GetUser(ctx context.Context, id int64) (UserRecord, error)
	ListUsers(ctx context.Context, limit int) ([]UserRecord, error)
	ListDosages(ctx context.Context, f DosageFilter) ([]DosageRecord, error)

	EventStore

	Ping(ctx context.Context) error
	Close() error
}

type DosageFilter struct {
	UserID int64  // 0 = any
	Date   string // "" = any
	Limit  int
}
