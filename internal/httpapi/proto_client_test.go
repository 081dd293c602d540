package httpapi_test

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// encodeDeviceRequest builds an AddUserRequest or HandleRequest; both share
// the layout rfid_code=1, fingerprint_id=2, name/timestamp=3. Zero values are
// omitted the way a proto3 encoder does.
func encodeDeviceRequest(rfid string, fp int64, third string) []byte {
	var b []byte
	if rfid != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, rfid)
	}
	if fp != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(fp))
	}
	if third != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, third)
	}
	return b
}

type reply struct {
	ok       bool
	code     string
	message  string
	dosage   float64
	dosageID int64
	date     string
	userID   int64
}

func decodeReply(t *testing.T, b []byte) reply {
	t.Helper()
	var r reply
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0)
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			require.GreaterOrEqual(t, m, 0)
			switch num {
			case 1:
				r.ok = protowire.DecodeBool(v)
			case 5:
				r.dosageID = int64(v)
			case 7:
				r.userID = int64(v)
			}
			n = m
		case protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			require.GreaterOrEqual(t, m, 0)
			switch num {
			case 2:
				r.code = s
			case 3:
				r.message = s
			case 6:
				r.date = s
			}
			n = m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			require.GreaterOrEqual(t, m, 0)
			if num == 4 {
				r.dosage = math.Float64frombits(v)
			}
			n = m
		default:
			t.Fatalf("unexpected wire type %d for field %d", typ, num)
		}
		b = b[n:]
	}
	return r
}

func postProto(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/x-protobuf", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}
