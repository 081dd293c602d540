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

// AttemptLimiter counts fingerprint mismatches per RFID. Implementations
// live in the limiter package.
type AttemptLimiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Dispense is what a successful authorization releases.
type Dispense struct {
	DosageID int64
	UserID   int64
	Date     string
	Amount   float64
}

// Authorizer runs the dosage authorization workflow. Identity resolution,
// fingerprint confirmation, dosage lookup, consumption and the event all
// happen in one store transaction, so a dosage is dispensed at most once
// no matter how many requests race for it.
type Authorizer struct {
	store    store.Store
	limiter  AttemptLimiter
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

type AuthorizerDeps struct {
	Store    store.Store
	Limiter  AttemptLimiter // optional
	Logger   *slog.Logger
	Recorder Recorder // optional
}

func NewAuthorizer(d AuthorizerDeps) *Authorizer {
	rec := d.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Authorizer{
		store:    d.Store,
		limiter:  d.Limiter,
		logger:   d.Logger,
		recorder: rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *Authorizer) Authorize(ctx context.Context, req types.HandleRequest) (Dispense, error) {
	out, err := a.authorize(ctx, req)
	a.recorder.ObserveAuthorization(outcomeOf(err))
	return out, err
}

func (a *Authorizer) authorize(ctx context.Context, req types.HandleRequest) (Dispense, error) {
	rfid := strings.TrimSpace(req.RFIDCode)
	fp := req.FingerprintID.Value

	ev := store.EventRecord{
		Type:      store.EventAuthorizationFailed,
		RFIDCode:  rfid,
		RequestID: RequestIDFrom(ctx),
	}
	if req.FingerprintID.Set {
		ev.FingerprintID = &fp
	}

	if rfid == "" || !req.FingerprintID.Set || strings.TrimSpace(req.Timestamp) == "" {
		return a.rejectOutside(ctx, ev, reject(ErrValidation, "rfid_code, fingerprint_id and timestamp are required"))
	}
	if fp <= 0 {
		return a.rejectOutside(ctx, ev, reject(ErrValidation, "fingerprint_id must be positive"))
	}
	date, ok := DateFromTimestamp(req.Timestamp)
	if !ok {
		return a.rejectOutside(ctx, ev, reject(ErrValidation, "timestamp must be an ISO-8601 date or date-time"))
	}

	if a.limiter != nil {
		locked, err := a.limiter.Locked(ctx, rfid)
		if err != nil {
			a.logger.Warn("limiter check failed, allowing", "err", err)
		} else if locked {
			return a.rejectOutside(ctx, ev, reject(ErrLockedOut, MsgLockedOut))
		}
	}

	var (
		out Dispense
		rej *Rejection
	)
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rej = nil
		ev := ev

		refuse := func(r *Rejection) error {
			rej = r
			_, err := tx.InsertEvent(ctx, failed(ev, r.Message))
			return err
		}

		u, err := tx.UserByRFID(ctx, rfid)
		if errors.Is(err, store.ErrNotFound) {
			return refuse(reject(ErrUnknownIdentity, MsgRFIDNotFound))
		}
		if err != nil {
			return fmt.Errorf("lookup rfid: %w", err)
		}
		ev.UserID = &u.ID

		if u.FingerprintID != fp {
			return refuse(reject(ErrIdentityMismatch, MsgFingerprint))
		}

		d, err := tx.DosageForUpdate(ctx, u.ID, date)
		if errors.Is(err, store.ErrNotFound) {
			return refuse(reject(ErrNoDosageScheduled, MsgNoDosage))
		}
		if err != nil {
			return fmt.Errorf("lookup dosage: %w", err)
		}

		if d.Used {
			return refuse(reject(ErrAlreadyConsumed, MsgAlreadyDispensed))
		}
		if err := tx.MarkDosageUsed(ctx, d.ID, a.now()); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return refuse(reject(ErrAlreadyConsumed, MsgAlreadyDispensed))
			}
			return fmt.Errorf("mark used: %w", err)
		}

		dispensed := ev
		dispensed.Type = store.EventDosageDispensed
		dispensed.Status = store.StatusSuccess
		dispensed.Message = fmt.Sprintf("Dispensed %g for %s", d.Amount, date)
		if _, err := tx.InsertEvent(ctx, dispensed); err != nil {
			return err
		}

		out = Dispense{DosageID: d.ID, UserID: u.ID, Date: date, Amount: d.Amount}
		return nil
	})

	switch {
	case err != nil && rej != nil:
		// Only the failure event was lost; the rejection still stands.
		a.logger.Error("event write failed", "event_type", ev.Type, "request_id", ev.RequestID, "err", err)
		return Dispense{}, rej
	case errors.Is(err, store.ErrConflict):
		// The backend aborted us in favour of a concurrent consumer.
		rej = reject(ErrAlreadyConsumed, MsgAlreadyDispensed)
		writeEvent(ctx, a.store, a.logger, failed(ev, rej.Message))
		return Dispense{}, rej
	case err != nil:
		writeEvent(ctx, a.store, a.logger, failed(ev, "internal error"))
		return Dispense{}, fmt.Errorf("authorize: %w", err)
	case rej != nil:
		if errors.Is(rej, ErrIdentityMismatch) {
			a.noteMismatch(ctx, rfid)
		}
		return Dispense{}, rej
	}

	if a.limiter != nil {
		if err := a.limiter.Reset(ctx, rfid); err != nil {
			a.logger.Warn("limiter reset failed", "err", err)
		}
	}
	a.logger.Info("dosage dispensed",
		"user_id", out.UserID,
		"dosage_id", out.DosageID,
		"date", out.Date,
		"request_id", ev.RequestID,
	)
	return out, nil
}

// rejectOutside handles rejections decided before the workflow transaction.
func (a *Authorizer) rejectOutside(ctx context.Context, ev store.EventRecord, rej *Rejection) (Dispense, error) {
	writeEvent(ctx, a.store, a.logger, failed(ev, rej.Message))
	return Dispense{}, rej
}

func (a *Authorizer) noteMismatch(ctx context.Context, rfid string) {
	if a.limiter == nil {
		return
	}
	n, err := a.limiter.Fail(ctx, rfid)
	if err != nil {
		a.logger.Warn("limiter record failed", "err", err)
		return
	}
	a.logger.Debug("fingerprint mismatch recorded", "failures", n)
}
