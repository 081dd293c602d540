package service

import (
	"errors"
)

// Sentinels double as the machine-readable code sent to clients.
var (
	ErrValidation        = errors.New("validation_error")
	ErrDuplicateIdentity = errors.New("duplicate_identity")
	ErrUnknownIdentity   = errors.New("not_found")
	ErrIdentityMismatch  = errors.New("unauthorized")
	ErrNoDosageScheduled = errors.New("no_dosage_scheduled")
	ErrAlreadyConsumed   = errors.New("already_consumed")
	ErrLockedOut         = errors.New("locked_out")
	ErrDuplicateDosage   = errors.New("duplicate_dosage")
)

// Rejection is a client-facing failure: Reason is one of the sentinels above
// and Message is the text returned to the device and written to the event log.
type Rejection struct {
	Reason  error
	Message string
}

func reject(reason error, msg string) *Rejection {
	return &Rejection{Reason: reason, Message: msg}
}

func (r *Rejection) Error() string { return r.Reason.Error() + ": " + r.Message }

func (r *Rejection) Unwrap() error { return r.Reason }

// Code is the stable identifier of the rejection reason.
func (r *Rejection) Code() string { return r.Reason.Error() }

const (
	MsgUserAdded        = "User added successfully"
	MsgDuplicateUser    = "RFID or fingerprint already exists"
	MsgRFIDNotFound     = "RFID not found"
	MsgFingerprint      = "Fingerprint mismatch"
	MsgNoDosage         = "No dosage defined for the specified date"
	MsgAlreadyDispensed = "Dosage already dispensed for the specified date"
	MsgLockedOut        = "Too many failed attempts"
	MsgDosageScheduled  = "Dosage scheduled"
)
