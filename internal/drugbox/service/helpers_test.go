package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/drugbox/internal/db"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store/memory"
	sqlitestore "github.com/BrandonDHaskell/drugbox/internal/drugbox/store/sqlite"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
	"github.com/BrandonDHaskell/drugbox/internal/logging"
)

// backends returns a fresh store per backend that supports the workflow
// without external services.
func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	return map[string]store.Store{
		"memory": memory.New(),
		"sqlite": newSQLiteStore(t),
	}
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	name := "svc_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.OpenMemory(context.Background(), name)
	require.NoError(t, err)
	s := sqlitestore.New(conn, db.NewWorker(conn))
	t.Cleanup(func() {
		_ = s.Close()
		_ = conn.Close()
	})
	return s
}

func register(t *testing.T, st store.Store, rfid string, fp int64) store.UserRecord {
	t.Helper()
	u, err := service.NewRegistry(st, logging.Discard(), nil).Register(context.Background(), types.AddUserRequest{
		RFIDCode:      rfid,
		FingerprintID: types.NewFingerprintID(fp),
		Name:          "Test User",
	})
	require.NoError(t, err)
	return u
}

func schedule(t *testing.T, st store.Store, userID int64, date string, amount float64) store.DosageRecord {
	t.Helper()
	d, err := service.NewScheduler(st, logging.Discard()).Schedule(context.Background(), types.ScheduleDosageRequest{
		UserID: userID, Date: date, Amount: amount,
	})
	require.NoError(t, err)
	return d
}

func eventsOfType(t *testing.T, st store.Store, typ string) []store.EventRecord {
	t.Helper()
	evs, err := st.ListEvents(context.Background(), store.EventFilter{Type: typ})
	require.NoError(t, err)
	return evs
}

// flakyStore fails every InsertEvent whose status matches failStatus.
type flakyStore struct {
	store.Store
	failStatus string
}

func (f *flakyStore) WithinTx(ctx context.Context, fn store.TxFn) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, flakyTx{Tx: tx, failStatus: f.failStatus})
	})
}

type flakyTx struct {
	store.Tx
	failStatus string
}

func (t flakyTx) InsertEvent(ctx context.Context, e store.EventRecord) (store.EventRecord, error) {
	if e.Status == t.failStatus {
		return store.EventRecord{}, errors.New("disk full")
	}
	return t.Tx.InsertEvent(ctx, e)
}

// countingRecorder tallies outcomes per label.
type countingRecorder struct {
	registrations  map[string]int
	authorizations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{registrations: map[string]int{}, authorizations: map[string]int{}}
}

func (r *countingRecorder) ObserveRegistration(o string)  { r.registrations[o]++ }
func (r *countingRecorder) ObserveAuthorization(o string) { r.authorizations[o]++ }
