package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FingerprintID is the sensor slot id reported by a device. Firmware sends
// it either as a JSON number or as a numeric string; null or absent leaves
// Set false.
type FingerprintID struct {
	Value int64
	Set   bool
}

func NewFingerprintID(v int64) FingerprintID { return FingerprintID{Value: v, Set: true} }

func (f *FingerprintID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = FingerprintID{}
		return nil
	}

	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = FingerprintID{}
			return nil
		}
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("fingerprint_id must be an integer, got %s", string(b))
	}
	*f = FingerprintID{Value: v, Set: true}
	return nil
}

func (f FingerprintID) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, f.Value, 10), nil
}

type AddUserRequest struct {
	RFIDCode      string        `json:"rfid_code"`
	FingerprintID FingerprintID `json:"fingerprint_id"`
	Name          string        `json:"name,omitempty"`
}

type AddUserResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	User    User   `json:"user"`
}

type User struct {
	ID            int64  `json:"id"`
	RFIDCode      string `json:"rfid_code"`
	FingerprintID int64  `json:"fingerprint_id"`
	Name          string `json:"name"`
	CreatedAt     string `json:"created_at"`
}

// HandleRequest asks for permission to release the dosage scheduled on the
// date carried by Timestamp.
type HandleRequest struct {
	RFIDCode      string        `json:"rfid_code"`
	FingerprintID FingerprintID `json:"fingerprint_id"`
	Timestamp     string        `json:"timestamp"`
}

type HandleResponse struct {
	Status   string  `json:"status"`
	Dosage   float64 `json:"dosage"`
	DosageID int64   `json:"dosage_id"`
	Date     string  `json:"date"`
	UserID   int64   `json:"user_id"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
