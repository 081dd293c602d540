package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

// Registry enrolls users. RFID code and fingerprint id are each unique
// across all users and never overwritten.
type Registry struct {
	store    store.Store
	logger   *slog.Logger
	recorder Recorder
}

func NewRegistry(st store.Store, logger *slog.Logger, rec Recorder) *Registry {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Registry{store: st, logger: logger, recorder: rec}
}

func (r *Registry) Register(ctx context.Context, req types.AddUserRequest) (store.UserRecord, error) {
	u, err := r.register(ctx, req)
	r.recorder.ObserveRegistration(outcomeOf(err))
	return u, err
}

func (r *Registry) register(ctx context.Context, req types.AddUserRequest) (store.UserRecord, error) {
	rfid := strings.TrimSpace(req.RFIDCode)
	name := strings.TrimSpace(req.Name)

	ev := store.EventRecord{
		Type:      store.EventUserCreationFailed,
		RFIDCode:  rfid,
		RequestID: RequestIDFrom(ctx),
	}
	if req.FingerprintID.Set {
		fp := req.FingerprintID.Value
		ev.FingerprintID = &fp
	}

	if rfid == "" || !req.FingerprintID.Set {
		rej := reject(ErrValidation, "rfid_code and fingerprint_id are required")
		writeEvent(ctx, r.store, r.logger, failed(ev, rej.Message))
		return store.UserRecord{}, rej
	}
	// Sensors number slots from 1; proto3 also cannot tell 0 from absent.
	if req.FingerprintID.Value <= 0 {
		rej := reject(ErrValidation, "fingerprint_id must be positive")
		writeEvent(ctx, r.store, r.logger, failed(ev, rej.Message))
		return store.UserRecord{}, rej
	}

	var (
		created store.UserRecord
		rej     *Rejection
	)
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rej = nil

		taken, err := identityTaken(ctx, tx, rfid, req.FingerprintID.Value)
		if err != nil {
			return err
		}
		if taken {
			rej = reject(ErrDuplicateIdentity, MsgDuplicateUser)
			_, err := tx.InsertEvent(ctx, failed(ev, rej.Message))
			return err
		}

		u, err := tx.InsertUser(ctx, store.UserRecord{
			RFIDCode:      rfid,
			FingerprintID: req.FingerprintID.Value,
			Name:          name,
			CreatedAt:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		done := ev
		done.Type = store.EventUserCreated
		done.Status = store.StatusSuccess
		done.Message = MsgUserAdded
		done.UserID = &u.ID
		if _, err := tx.InsertEvent(ctx, done); err != nil {
			return err
		}

		created = u
		return nil
	})

	switch {
	case rej != nil:
		if err != nil {
			r.logger.Error("event write failed", "event_type", ev.Type, "request_id", ev.RequestID, "err", err)
		}
		return store.UserRecord{}, rej
	case err == nil:
		r.logger.Info("user registered", "user_id", created.ID, "request_id", ev.RequestID)
		return created, nil
	case errors.Is(err, store.ErrConflict):
		// Lost a race with a concurrent registration of the same identity.
		rej = reject(ErrDuplicateIdentity, MsgDuplicateUser)
		writeEvent(ctx, r.store, r.logger, failed(ev, rej.Message))
		return store.UserRecord{}, rej
	default:
		writeEvent(ctx, r.store, r.logger, failed(ev, "internal error"))
		return store.UserRecord{}, fmt.Errorf("register: %w", err)
	}
}

// identityTaken checks RFID and fingerprint independently.
func identityTaken(ctx context.Context, tx store.Tx, rfid string, fp int64) (bool, error) {
	if _, err := tx.UserByRFID(ctx, rfid); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup rfid: %w", err)
	}

	if _, err := tx.UserByFingerprint(ctx, fp); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return false, nil
}
