package store

import (
	"context"
	"time"
)

const (
	EventUserCreated         = "user_created"
	EventUserCreationFailed  = "user_creation_failed"
	EventDosageDispensed     = "dosage_dispensed"
	EventAuthorizationFailed = "authorization_failed"
	EventDosageScheduled     = "dosage_scheduled"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// EventRecord is one row of the append-only audit log. RFIDCode and
// FingerprintID hold what the caller supplied, which may not match any user.
type EventRecord struct {
	ID            int64
	Type          string
	UserID        *int64
	RFIDCode      string
	FingerprintID *int64
	Status        string
	Message       string
	RequestID     string
	OccurredAt    time.Time
}

type EventFilter struct {
	Type   string
	UserID int64
	Limit  int
}

// EventStore reads and prunes the audit log. Writes go through Tx.
type EventStore interface {
	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, f EventFilter) ([]EventRecord, error)
	// PruneEventsBefore deletes events older than cutoff and returns the count.
	PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClampLimit bounds list limits to [1, max], using def when n <= 0.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
