package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store/memory"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
	"github.com/BrandonDHaskell/drugbox/internal/logging"
)

func TestRegistry_Register_Success(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := service.WithRequestID(context.Background(), "req-1")
			reg := service.NewRegistry(st, logging.Discard(), nil)

			u, err := reg.Register(ctx, types.AddUserRequest{
				RFIDCode:      " RFID123456 ",
				FingerprintID: types.NewFingerprintID(12345),
				Name:          "Test User",
			})
			require.NoError(t, err)
			assert.Positive(t, u.ID)
			assert.Equal(t, "RFID123456", u.RFIDCode)
			assert.Equal(t, int64(12345), u.FingerprintID)
			assert.Equal(t, "Test User", u.Name)

			evs := eventsOfType(t, st, store.EventUserCreated)
			require.Len(t, evs, 1)
			require.NotNil(t, evs[0].UserID)
			assert.Equal(t, u.ID, *evs[0].UserID)
			assert.Equal(t, store.StatusSuccess, evs[0].Status)
			assert.Equal(t, "req-1", evs[0].RequestID)
		})
	}
}

func TestRegistry_Register_NameOptional(t *testing.T) {
	st := memory.New()
	u, err := service.NewRegistry(st, logging.Discard(), nil).Register(context.Background(), types.AddUserRequest{
		RFIDCode: "A", FingerprintID: types.NewFingerprintID(7),
	})
	require.NoError(t, err)
	assert.Empty(t, u.Name)
}

func TestRegistry_Register_Validation(t *testing.T) {
	cases := map[string]types.AddUserRequest{
		"missing rfid":         {FingerprintID: types.NewFingerprintID(1)},
		"blank rfid":           {RFIDCode: "   ", FingerprintID: types.NewFingerprintID(1)},
		"missing fingerprint":  {RFIDCode: "A"},
		"negative fingerprint": {RFIDCode: "A", FingerprintID: types.NewFingerprintID(-1)},
		"zero fingerprint":     {RFIDCode: "A", FingerprintID: types.NewFingerprintID(0)},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			st := memory.New()
			_, err := service.NewRegistry(st, logging.Discard(), nil).Register(context.Background(), req)
			require.ErrorIs(t, err, service.ErrValidation)

			users, _ := st.ListUsers(context.Background(), 0)
			assert.Empty(t, users)

			evs := eventsOfType(t, st, store.EventUserCreationFailed)
			require.Len(t, evs, 1)
			assert.Equal(t, store.StatusFailed, evs[0].Status)
		})
	}
}

func TestRegistry_Register_DuplicateEitherIdentity(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			register(t, st, "RFID123456", 12345)
			reg := service.NewRegistry(st, logging.Discard(), nil)

			for _, req := range []types.AddUserRequest{
				{RFIDCode: "RFID123456", FingerprintID: types.NewFingerprintID(67890), Name: "Other"},
				{RFIDCode: "RFID999999", FingerprintID: types.NewFingerprintID(12345)},
				{RFIDCode: "RFID123456", FingerprintID: types.NewFingerprintID(12345)},
			} {
				_, err := reg.Register(context.Background(), req)
				require.ErrorIs(t, err, service.ErrDuplicateIdentity)

				var rej *service.Rejection
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, service.MsgDuplicateUser, rej.Message)
				assert.Equal(t, "duplicate_identity", rej.Code())
			}

			users, err := st.ListUsers(context.Background(), 0)
			require.NoError(t, err)
			assert.Len(t, users, 1)

			evs := eventsOfType(t, st, store.EventUserCreationFailed)
			require.Len(t, evs, 3)
			for _, e := range evs {
				assert.Equal(t, service.MsgDuplicateUser, e.Message)
			}
		})
	}
}

func TestRegistry_FailedEventWriteDoesNotMaskRejection(t *testing.T) {
	base := memory.New()
	register(t, base, "A", 1)
	st := &flakyStore{Store: base, failStatus: store.StatusFailed}

	_, err := service.NewRegistry(st, logging.Discard(), nil).Register(context.Background(), types.AddUserRequest{
		RFIDCode: "A", FingerprintID: types.NewFingerprintID(2),
	})
	assert.ErrorIs(t, err, service.ErrDuplicateIdentity)

	_, err = service.NewRegistry(st, logging.Discard(), nil).Register(context.Background(), types.AddUserRequest{})
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.Empty(t, eventsOfType(t, base, store.EventUserCreationFailed))
}

func TestRegistry_RecordsOutcomes(t *testing.T) {
	st := memory.New()
	rec := newCountingRecorder()
	reg := service.NewRegistry(st, logging.Discard(), rec)

	_, _ = reg.Register(context.Background(), types.AddUserRequest{RFIDCode: "A", FingerprintID: types.NewFingerprintID(1)})
	_, _ = reg.Register(context.Background(), types.AddUserRequest{RFIDCode: "A", FingerprintID: types.NewFingerprintID(2)})
	_, _ = reg.Register(context.Background(), types.AddUserRequest{})

	assert.Equal(t, 1, rec.registrations["success"])
	assert.Equal(t, 1, rec.registrations["duplicate_identity"])
	assert.Equal(t, 1, rec.registrations["validation_error"])
}
