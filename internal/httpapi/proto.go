package httpapi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads. Device messages are well under 200 bytes either way.
const maxRequestBody = 4096

const protobufContentType = "application/x-protobuf"

// Wire schema, field numbers:
//
//	AddUserRequest { string rfid_code = 1; int64 fingerprint_id = 2; string name = 3; }
//	HandleRequest  { string rfid_code = 1; int64 fingerprint_id = 2; string timestamp = 3; }
//	DeviceReply    { bool ok = 1; string code = 2; string message = 3; double dosage = 4;
//	                 int64 dosage_id = 5; string date = 6; int64 user_id = 7; }

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == protobufContentType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

func readProtoBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxRequestBody {
		return nil, errors.New("body too large")
	}
	return body, nil
}

// deviceFields is the common shape of both device requests: field 3 is the
// name for AddUserRequest and the timestamp for HandleRequest.
type deviceFields struct {
	rfid   string
	fp     types.FingerprintID
	field3 string
}

func decodeDeviceFields(b []byte) (deviceFields, error) {
	var out deviceFields
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return deviceFields{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			out.rfid, n = protowire.ConsumeString(b)
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			out.fp = types.NewFingerprintID(int64(v))
		case num == 3 && typ == protowire.BytesType:
			out.field3, n = protowire.ConsumeString(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return deviceFields{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return out, nil
}

func decodeAddUser(b []byte) (types.AddUserRequest, error) {
	f, err := decodeDeviceFields(b)
	if err != nil {
		return types.AddUserRequest{}, err
	}
	return types.AddUserRequest{RFIDCode: f.rfid, FingerprintID: f.fp, Name: f.field3}, nil
}

func decodeHandleRequest(b []byte) (types.HandleRequest, error) {
	f, err := decodeDeviceFields(b)
	if err != nil {
		return types.HandleRequest{}, err
	}
	return types.HandleRequest{RFIDCode: f.rfid, FingerprintID: f.fp, Timestamp: f.field3}, nil
}

type deviceReply struct {
	OK       bool
	Code     string
	Message  string
	Dosage   float64
	DosageID int64
	Date     string
	UserID   int64
}

// encode follows proto3 rules: zero values are omitted.
func (m deviceReply) encode() []byte {
	var b []byte
	if m.OK {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendString(b, 2, m.Code)
	b = appendString(b, 3, m.Message)
	if m.Dosage != 0 {
		b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.Dosage))
	}
	b = appendInt64(b, 5, m.DosageID)
	b = appendString(b, 6, m.Date)
	b = appendInt64(b, 7, m.UserID)
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func writeProto(w http.ResponseWriter, status int, m deviceReply) {
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(m.encode())
}
