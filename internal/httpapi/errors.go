package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

var rejectionStatus = []struct {
	reason error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrDuplicateIdentity, http.StatusConflict},
	{service.ErrUnknownIdentity, http.StatusNotFound},
	{service.ErrIdentityMismatch, http.StatusUnauthorized},
	{service.ErrNoDosageScheduled, http.StatusForbidden},
	{service.ErrAlreadyConsumed, http.StatusForbidden},
	{service.ErrLockedOut, http.StatusTooManyRequests},
	{service.ErrDuplicateDosage, http.StatusConflict},
}

// classify maps a service error to status, code and message. Anything that
// is not a *service.Rejection is logged and hidden behind internal_error.
func classify(logger *slog.Logger, op string, err error) (int, string, string) {
	var rej *service.Rejection
	if errors.As(err, &rej) {
		for _, m := range rejectionStatus {
			if errors.Is(rej, m.reason) {
				return m.status, rej.Code(), rej.Message
			}
		}
	}
	logger.Error(op+" failed", "err", err)
	return http.StatusInternalServerError, "internal_error", "unexpected server error"
}

func errorBody(code, msg string) types.ErrorResponse {
	return types.ErrorResponse{Status: "error", Code: code, Message: msg}
}
