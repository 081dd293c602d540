package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

type dosageKey struct {
	userID int64
	date   string
}

// Store is an in-memory implementation of store.Store. A single mutex is
// held for the whole of WithinTx, so transactions are fully serialised.
// It is intended for use in tests and dev environments.
type Store struct {
	mu sync.Mutex

	nextUserID   int64
	nextDosageID int64
	nextEventID  int64

	users  map[int64]store.UserRecord
	byRFID map[string]int64
	byFP   map[int64]int64

	dosages    map[int64]store.DosageRecord
	byUserDate map[dosageKey]int64

	events []store.EventRecord
}

func New() *Store {
	return &Store{
		users:      make(map[int64]store.UserRecord),
		byRFID:     make(map[string]int64),
		byFP:       make(map[int64]int64),
		dosages:    make(map[int64]store.DosageRecord),
		byUserDate: make(map[dosageKey]int64),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn store.TxFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (store.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context, limit int) ([]store.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListDosages(_ context.Context, f store.DosageFilter) ([]store.DosageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.DosageRecord
	for _, d := range s.dosages {
		if f.UserID != 0 && d.UserID != f.UserID {
			continue
		}
		if f.Date != "" && d.Date != f.Date {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ListEvents(_ context.Context, f store.EventFilter) ([]store.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.EventRecord
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.UserID != 0 && (e.UserID == nil || *e.UserID != f.UserID) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) PruneEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

// Events returns a copy of all recorded events, oldest first. Test-only helper.
func (s *Store) Events() []store.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.EventRecord, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
