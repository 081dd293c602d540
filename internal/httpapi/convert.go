package httpapi

import (
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

func userView(u store.UserRecord) types.User {
	return types.User{
		ID:            u.ID,
		RFIDCode:      u.RFIDCode,
		FingerprintID: u.FingerprintID,
		Name:          u.Name,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func dosageView(d store.DosageRecord) types.Dosage {
	out := types.Dosage{
		ID:        d.ID,
		UserID:    d.UserID,
		Date:      d.Date,
		Amount:    d.Amount,
		Used:      d.Used,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.UsedAt != nil {
		out.UsedAt = d.UsedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func eventView(e store.EventRecord) types.Event {
	return types.Event{
		ID:            e.ID,
		Type:          e.Type,
		UserID:        e.UserID,
		RFIDCode:      e.RFIDCode,
		FingerprintID: e.FingerprintID,
		Status:        e.Status,
		Message:       e.Message,
		RequestID:     e.RequestID,
		OccurredAt:    e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func handleResponse(d service.Dispense) types.HandleResponse {
	return types.HandleResponse{
		Status:   "success",
		Dosage:   d.Amount,
		DosageID: d.DosageID,
		Date:     d.Date,
		UserID:   d.UserID,
	}
}

func handleReply(d service.Dispense) deviceReply {
	return deviceReply{
		OK:       true,
		Message:  "success",
		Dosage:   d.Amount,
		DosageID: d.DosageID,
		Date:     d.Date,
		UserID:   d.UserID,
	}
}

func addUserReply(u store.UserRecord) deviceReply {
	return deviceReply{OK: true, Message: service.MsgUserAdded, UserID: u.ID}
}
