package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Directory serves the admin read paths.
type Directory struct {
	store store.Store
}

func NewDirectory(st store.Store) *Directory {
	return &Directory{store: st}
}

func (d *Directory) GetUser(ctx context.Context, id int64) (store.UserRecord, error) {
	if id <= 0 {
		return store.UserRecord{}, reject(ErrValidation, "id must be positive")
	}
	u, err := d.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.UserRecord{}, reject(ErrUnknownIdentity, "user not found")
	}
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (d *Directory) ListUsers(ctx context.Context, limit int) ([]store.UserRecord, error) {
	users, err := d.store.ListUsers(ctx, store.ClampLimit(limit, DefaultListLimit, MaxListLimit))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (d *Directory) ListDosages(ctx context.Context, f store.DosageFilter) ([]store.DosageRecord, error) {
	if f.Date != "" {
		if _, err := time.Parse(store.DateLayout, f.Date); err != nil {
			return nil, reject(ErrValidation, "date must be YYYY-MM-DD")
		}
	}
	if f.UserID < 0 {
		return nil, reject(ErrValidation, "user_id must be positive")
	}
	f.Limit = store.ClampLimit(f.Limit, DefaultListLimit, MaxListLimit)

	ds, err := d.store.ListDosages(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list dosages: %w", err)
	}
	return ds, nil
}

func (d *Directory) ListEvents(ctx context.Context, f store.EventFilter) ([]store.EventRecord, error) {
	if f.UserID < 0 {
		return nil, reject(ErrValidation, "user_id must be positive")
	}
	f.Limit = store.ClampLimit(f.Limit, DefaultListLimit, MaxListLimit)

	evs, err := d.store.ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return evs, nil
}
