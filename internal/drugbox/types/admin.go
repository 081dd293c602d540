package types

type ScheduleDosageRequest struct {
	UserID int64   `json:"user_id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type Dosage struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Used      bool    `json:"used"`
	UsedAt    string  `json:"used_at,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type Event struct {
	ID            int64  `json:"id"`
	Type          string `json:"event_type"`
	UserID        *int64 `json:"user_id,omitempty"`
	RFIDCode      string `json:"rfid_code,omitempty"`
	FingerprintID *int64 `json:"fingerprint_id,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	RequestID     string `json:"request_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type DosagesResponse struct {
	Dosages []Dosage `json:"dosages"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
}
