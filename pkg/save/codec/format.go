package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format identifies the body encoding.
type Format uint8

// Known body formats. The numeric values are stored on disk; never reorder.
const (
	FormatJSON    Format = 1
	FormatMsgPack Format = 2
)

// structTag is shared by both formats so a type serializes with the same
// field names regardless of format.
const structTag = "json"

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgPack:
		return "msgpack"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat parses "json" or "msgpack" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "msgpack", "messagepack":
		return FormatMsgPack, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, s)
	}
}

func (f Format) valid() bool {
	return f == FormatJSON || f == FormatMsgPack
}

func (f Format) marshal(v any) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(v)
	case FormatMsgPack:
		var buf bytes.Buffer

		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		enc.SetCustomStructTag(structTag)

		err := enc.Encode(v)
		if err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %d", uint8(f))
	}
}

func (f Format) unmarshal(data []byte, v any) error {
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))

		err := dec.Decode(v)
		if err != nil {
			return err
		}

		return expectEOF(dec)
	case FormatMsgPack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag(structTag)

		return dec.Decode(v)
	default:
		return fmt.Errorf("unknown format %d", uint8(f))
	}
}

// unmarshalGeneric decodes data into plain Go values: objects become
// map[string]any and arrays []any. JSON numbers stay [json.Number] so integers
// survive migrations without float rounding.
func (f Format) unmarshalGeneric(data []byte) (any, error) {
	var doc any

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		err := dec.Decode(&doc)
		if err != nil {
			return nil, err
		}

		return doc, expectEOF(dec)
	case FormatMsgPack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))

		err := dec.Decode(&doc)
		if err != nil {
			return nil, err
		}

		return doc, nil
	default:
		return nil, fmt.Errorf("unknown format %d", uint8(f))
	}
}

func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage

	err := dec.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return err
	}

	return errors.New("trailing data after JSON value")
}
