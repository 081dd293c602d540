package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// Recorder observes workflow outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveRegistration(outcome string)
	ObserveAuthorization(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRegistration(string)  {}
func (nopRecorder) ObserveAuthorization(string) {}

// Outcome label for a result error: "success", a rejection code, or "error".
func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Code()
	}
	return "error"
}

func failed(ev store.EventRecord, msg string) store.EventRecord {
	ev.Status = store.StatusFailed
	ev.Message = msg
	return ev
}

// writeEvent records ev in a transaction of its own. It is used when the
// workflow transaction could not carry the event. A failure here is logged
// and never replaces the caller's result.
func writeEvent(ctx context.Context, st store.Store, logger *slog.Logger, ev store.EventRecord) {
	ctx = context.WithoutCancel(ctx)
	err := st.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.InsertEvent(ctx, ev)
		return err
	})
	if err != nil {
		logger.Error("event write failed",
			"event_type", ev.Type,
			"status", ev.Status,
			"message", ev.Message,
			"request_id", ev.RequestID,
			"err", err,
		)
	}
}
