package record_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calvinalkan/savekit/pkg/save/codec"
	"github.com/calvinalkan/savekit/pkg/save/record"
)

func encodedPayload(t *testing.T) []byte {
	t.Helper()

	payload, err := codec.Default().Encode(map[string]any{"level": 3, "name": "quicksave"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	return payload
}

func marshaled(t *testing.T) []byte {
	t.Helper()

	r, err := record.New(encodedPayload(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := record.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	return data
}

func TestRecord_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := encodedPayload(t)

	r, err := record.New(payload)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if r.SchemaVersion != codec.DefaultVersion {
		t.Fatalf("SchemaVersion=%d, want %d", r.SchemaVersion, codec.DefaultVersion)
	}

	data, err := record.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if len(data) != record.HeaderSize+len(payload) {
		t.Fatalf("len=%d, want %d", len(data), record.HeaderSize+len(payload))
	}

	got, err := record.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.SchemaVersion != r.SchemaVersion || got.Checksum != r.Checksum || !bytes.Equal(got.Payload, payload) {
		t.Fatalf("got %+v, want %+v", got, r)
	}
}

func TestRecord_Unmarshal_Detects_Every_Single_Byte_Flip(t *testing.T) {
	t.Parallel()

	data := marshaled(t)

	for i := range data {
		for _, mask := range []byte{0x01, 0x80, 0xFF} {
			corrupted := bytes.Clone(data)
			corrupted[i] ^= mask

			_, err := record.Unmarshal(corrupted)
			if !errors.Is(err, record.ErrCorrupt) {
				t.Fatalf("flip byte %d with %#x: err=%v, want ErrCorrupt", i, mask, err)
			}
		}
	}
}

func TestRecord_Unmarshal_Rejects_Truncation_And_Extension(t *testing.T) {
	t.Parallel()

	data := marshaled(t)

	cases := map[string][]byte{
		"empty":        nil,
		"header only":  data[:record.HeaderSize],
		"short header": data[:record.HeaderSize-1],
		"truncated":    data[:len(data)-1],
		"extended":     append(bytes.Clone(data), 0),
	}

	for name, in := range cases {
		if _, err := record.Unmarshal(in); !errors.Is(err, record.ErrCorrupt) {
			t.Errorf("%s: err=%v, want ErrCorrupt", name, err)
		}
	}
}

func TestRecord_Unmarshal_Rejects_Header_Payload_Version_Mismatch(t *testing.T) {
	t.Parallel()

	payload := encodedPayload(t)

	r := record.Record{SchemaVersion: 9, Payload: payload}
	r.Checksum = record.Checksum(9, payload)

	data, err := record.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if _, err := record.Unmarshal(data); !errors.Is(err, record.ErrCorrupt) {
		t.Fatalf("err=%v, want ErrCorrupt", err)
	}
}

func TestNew_Rejects_Payload_Without_Codec_Header(t *testing.T) {
	t.Parallel()

	if _, err := record.New([]byte{1, 2}); !errors.Is(err, codec.ErrMalformedPayload) {
		t.Fatalf("err=%v, want ErrMalformedPayload", err)
	}
}

func TestRecord_Verify(t *testing.T) {
	t.Parallel()

	r, err := record.New(encodedPayload(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !r.Verify() {
		t.Fatal("Verify=false for fresh record")
	}

	r.Payload = bytes.Clone(r.Payload)
	r.Payload[len(r.Payload)-1] ^= 1

	if r.Verify() {
		t.Fatal("Verify=true after payload change")
	}
}
