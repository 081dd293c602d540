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

// Scheduler creates dosage schedules. It is reachable only from the admin API.
type Scheduler struct {
	store  store.Store
	logger *slog.Logger
}

func NewScheduler(st store.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: st, logger: logger}
}

func (s *Scheduler) Schedule(ctx context.Context, req types.ScheduleDosageRequest) (store.DosageRecord, error) {
	date := strings.TrimSpace(req.Date)

	if req.UserID <= 0 {
		return store.DosageRecord{}, reject(ErrValidation, "user_id must be positive")
	}
	if _, err := time.Parse(store.DateLayout, date); err != nil {
		return store.DosageRecord{}, reject(ErrValidation, "date must be YYYY-MM-DD")
	}
	if !(req.Amount > 0) {
		return store.DosageRecord{}, reject(ErrValidation, "amount must be positive")
	}

	var created store.DosageRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.UserByID(ctx, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return reject(ErrUnknownIdentity, "user not found")
		}
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		if _, err := tx.DosageForUpdate(ctx, u.ID, date); err == nil {
			return reject(ErrDuplicateDosage, "dosage already scheduled for this date")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lookup dosage: %w", err)
		}

		d, err := tx.InsertDosage(ctx, store.DosageRecord{
			UserID:    u.ID,
			Date:      date,
			Amount:    req.Amount,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		if _, err := tx.InsertEvent(ctx, store.EventRecord{
			Type:      store.EventDosageScheduled,
			UserID:    &u.ID,
			RFIDCode:  u.RFIDCode,
			Status:    store.StatusSuccess,
			Message:   fmt.Sprintf("%s %g for %s", MsgDosageScheduled, d.Amount, d.Date),
			RequestID: RequestIDFrom(ctx),
		}); err != nil {
			return err
		}

		created = d
		return nil
	})

	var rej *Rejection
	switch {
	case err == nil:
		s.logger.Info("dosage scheduled", "user_id", created.UserID, "date", created.Date, "amount", created.Amount)
		return created, nil
	case errors.As(err, &rej):
		return store.DosageRecord{}, rej
	case errors.Is(err, store.ErrConflict):
		return store.DosageRecord{}, reject(ErrDuplicateDosage, "dosage already scheduled for this date")
	case errors.Is(err, store.ErrNotFound):
		// Foreign key caught a user deleted between lookup and insert.
		return store.DosageRecord{}, reject(ErrUnknownIdentity, "user not found")
	default:
		return store.DosageRecord{}, fmt.Errorf("schedule: %w", err)
	}
}
