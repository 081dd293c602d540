package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store/memory"
)

func TestDirectory_Users(t *testing.T) {
	st := memory.New()
	for i := 0; i < 3; i++ {
		register(t, st, fmt.Sprintf("RFID%d", i), int64(i))
	}
	dir := service.NewDirectory(st)
	ctx := context.Background()

	all, err := dir.ListUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	two, err := dir.ListUsers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	u, err := dir.GetUser(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "RFID1", u.RFIDCode)

	_, err = dir.GetUser(ctx, 999)
	assert.ErrorIs(t, err, service.ErrUnknownIdentity)

	_, err = dir.GetUser(ctx, 0)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDirectory_DosagesAndEvents(t *testing.T) {
	st := memory.New()
	u := register(t, st, "A", 1)
	schedule(t, st, u.ID, "2024-01-15", 1)
	schedule(t, st, u.ID, "2024-01-16", 1)
	dir := service.NewDirectory(st)
	ctx := context.Background()

	ds, err := dir.ListDosages(ctx, store.DosageFilter{UserID: u.ID, Date: "2024-01-16"})
	require.NoError(t, err)
	require.Len(t, ds, 1)

	_, err = dir.ListDosages(ctx, store.DosageFilter{Date: "Jan 16"})
	assert.ErrorIs(t, err, service.ErrValidation)

	evs, err := dir.ListEvents(ctx, store.EventFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, store.EventDosageScheduled, evs[0].Type)
	assert.Equal(t, store.EventUserCreated, evs[2].Type)

	one, err := dir.ListEvents(ctx, store.EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
