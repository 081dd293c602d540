package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintID_Unmarshal(t *testing.T) {
	cases := []struct {
		in      string
		want    FingerprintID
		wantErr bool
	}{
		{in: `{"fingerprint_id": 12345}`, want: NewFingerprintID(12345)},
		{in: `{"fingerprint_id": "12345"}`, want: NewFingerprintID(12345)},
		{in: `{"fingerprint_id": " 7 "}`, want: NewFingerprintID(7)},
		{in: `{"fingerprint_id": 0}`, want: NewFingerprintID(0)},
		{in: `{"fingerprint_id": -3}`, want: NewFingerprintID(-3)},
		{in: `{"fingerprint_id": null}`, want: FingerprintID{}},
		{in: `{"fingerprint_id": ""}`, want: FingerprintID{}},
		{in: `{}`, want: FingerprintID{}},
		{in: `{"fingerprint_id": "abc"}`, wantErr: true},
		{in: `{"fingerprint_id": 1.5}`, wantErr: true},
		{in: `{"fingerprint_id": true}`, wantErr: true},
	}

	for _, tc := range cases {
		var req AddUserRequest
		err := json.Unmarshal([]byte(tc.in), &req)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, req.FingerprintID, tc.in)
	}
}

func TestFingerprintID_Marshal(t *testing.T) {
	b, err := json.Marshal(HandleRequest{RFIDCode: "R", FingerprintID: NewFingerprintID(42), Timestamp: "2024-01-15"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rfid_code":"R","fingerprint_id":42,"timestamp":"2024-01-15"}`, string(b))

	b, err = json.Marshal(HandleRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rfid_code":"","fingerprint_id":null,"timestamp":""}`, string(b))
}
