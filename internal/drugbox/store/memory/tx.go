package memory

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// tx writes straight into the store (the caller holds s.mu) and keeps an
// undo log that rollback replays in reverse.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) UserByID(_ context.Context, id int64) (store.UserRecord, error) {
	u, ok := t.s.users[id]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return u, nil
}

func (t *tx) UserByRFID(_ context.Context, rfid string) (store.UserRecord, error) {
	id, ok := t.s.byRFID[rfid]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return t.s.users[id], nil
}

func (t *tx) UserByFingerprint(_ context.Context, fingerprintID int64) (store.UserRecord, error) {
	id, ok := t.s.byFP[fingerprintID]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return t.s.users[id], nil
}

func (t *tx) InsertUser(_ context.Context, u store.UserRecord) (store.UserRecord, error) {
	if _, ok := t.s.byRFID[u.RFIDCode]; ok {
		return store.UserRecord{}, store.ErrConflict
	}
	if _, ok := t.s.byFP[u.FingerprintID]; ok {
		return store.UserRecord{}, store.ErrConflict
	}

	prevID := t.s.nextUserID
	t.s.nextUserID++
	u.ID = t.s.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	t.s.users[u.ID] = u
	t.s.byRFID[u.RFIDCode] = u.ID
	t.s.byFP[u.FingerprintID] = u.ID

	t.undo = append(t.undo, func() {
		delete(t.s.users, u.ID)
		delete(t.s.byRFID, u.RFIDCode)
		delete(t.s.byFP, u.FingerprintID)
		t.s.nextUserID = prevID
	})
	return u, nil
}

func (t *tx) DosageForUpdate(_ context.Context, userID int64, date string) (store.DosageRecord, error) {
	id, ok := t.s.byUserDate[dosageKey{userID, date}]
	if !ok {
		return store.DosageRecord{}, store.ErrNotFound
	}
	return t.s.dosages[id], nil
}

func (t *tx) InsertDosage(_ context.Context, d store.DosageRecord) (store.DosageRecord, error) {
	if _, ok := t.s.users[d.UserID]; !ok {
		return store.DosageRecord{}, store.ErrNotFound
	}
	key := dosageKey{d.UserID, d.Date}
	if _, ok := t.s.byUserDate[key]; ok {
		return store.DosageRecord{}, store.ErrConflict
	}

	prevID := t.s.nextDosageID
	t.s.nextDosageID++
	d.ID = t.s.nextDosageID
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	t.s.dosages[d.ID] = d
	t.s.byUserDate[key] = d.ID

	t.undo = append(t.undo, func() {
		delete(t.s.dosages, d.ID)
		delete(t.s.byUserDate, key)
		t.s.nextDosageID = prevID
	})
	return d, nil
}

func (t *tx) MarkDosageUsed(_ context.Context, dosageID int64, usedAt time.Time) error {
	d, ok := t.s.dosages[dosageID]
	if !ok {
		return store.ErrNotFound
	}
	if d.Used {
		return store.ErrConflict
	}

	prev := d
	at := usedAt.UTC()
	d.Used = true
	d.UsedAt = &at
	t.s.dosages[dosageID] = d

	t.undo = append(t.undo, func() { t.s.dosages[dosageID] = prev })
	return nil
}

func (t *tx) InsertEvent(_ context.Context, e store.EventRecord) (store.EventRecord, error) {
	prevID := t.s.nextEventID
	t.s.nextEventID++
	e.ID = t.s.nextEventID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	n := len(t.s.events)
	t.s.events = append(t.s.events, e)

	t.undo = append(t.undo, func() {
		t.s.events = t.s.events[:n]
		t.s.nextEventID = prevID
	})
	return e, nil
}
