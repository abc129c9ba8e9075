// Package codec converts save values to and from a versioned byte encoding.
//
// Every encoded value starts with a fixed header:
//
//	off  size  field
//	0    4     schema version (uint32, little endian)
//	4    1     body format (see [Format])
//	5    n     body
//
// The body is canonical for identical input: JSON output follows struct field
// order and sorts map keys, MessagePack output sorts map keys. Decoding is
// forward compatible (unknown fields are ignored) and strict about shape
// (missing required fields and type mismatches fail).
//
// Older schema versions are upgraded with [Migration] functions registered in
// [Options.Migrations] before the value is decoded.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors returned by codec operations.
var (
	// ErrUnsupportedSchema indicates the encoded schema version is not one
	// this codec can decode, either because it is newer than [Codec.Version],
	// older than the minimum, or has no migration path.
	//
	// Recovery: upgrade the program or register the missing migration.
	ErrUnsupportedSchema = errors.New("codec: unsupported schema version")

	// ErrMalformedPayload indicates the bytes do not describe a value of the
	// requested shape: truncated header, unknown body format, invalid body,
	// missing required fields, or mismatched field types.
	ErrMalformedPayload = errors.New("codec: malformed payload")

	// ErrInvalidOptions indicates [New] was called with inconsistent options.
	//
	// This is a programming error.
	ErrInvalidOptions = errors.New("codec: invalid options")
)

// HeaderSize is the number of bytes preceding the body.
const HeaderSize = 5

// DefaultVersion is the schema version used when [Options.Version] is zero.
const DefaultVersion uint32 = 1

// Migration upgrades a decoded document from schema version N to N+1.
//
// The document is the generic form of the body (objects are map[string]any).
// A migration may mutate and return doc or build a new map. Returning an
// error aborts decoding with [ErrMalformedPayload].
type Migration func(doc map[string]any) (map[string]any, error)

// Options configures a [Codec]. The zero value encodes JSON at schema version 1.
type Options struct {
	// Version is the schema version written by Encode and the target of
	// migrations. Zero means [DefaultVersion].
	Version uint32

	// MinVersion is the oldest version Decode accepts, provided a migration
	// chain reaches Version. Zero means "as old as the migrations allow".
	MinVersion uint32

	// Format is the body format written by Encode. Zero means [FormatJSON].
	// Decode accepts every known format regardless of this setting.
	Format Format

	// Migrations maps a source version N to the function upgrading N to N+1.
	Migrations map[uint32]Migration
}

// Codec encodes and decodes versioned values. A Codec is immutable and safe
// for concurrent use.
type Codec struct {
	version    uint32
	minVersion uint32
	format     Format
	migrations map[uint32]Migration
}

// New validates opts and returns a Codec.
func New(opts Options) (*Codec, error) {
	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}

	if opts.Format == 0 {
		opts.Format = FormatJSON
	}

	if !opts.Format.valid() {
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidOptions, opts.Format)
	}

	if opts.MinVersion > opts.Version {
		return nil, fmt.Errorf("%w: min version %d exceeds version %d", ErrInvalidOptions, opts.MinVersion, opts.Version)
	}

	migrations := make(map[uint32]Migration, len(opts.Migrations))

	for from, m := range opts.Migrations {
		if from >= opts.Version {
			return nil, fmt.Errorf("%w: migration from %d does not lead to version %d", ErrInvalidOptions, from, opts.Version)
		}

		if m == nil {
			return nil, fmt.Errorf("%w: nil migration from %d", ErrInvalidOptions, from)
		}

		migrations[from] = m
	}

	return &Codec{
		version:    opts.Version,
		minVersion: opts.MinVersion,
		format:     opts.Format,
		migrations: migrations,
	}, nil
}

// Default returns a JSON codec at schema version 1 with no migrations.
func Default() *Codec {
	c, _ := New(Options{})

	return c
}

// Version returns the schema version written by Encode.
func (c *Codec) Version() uint32 { return c.version }

// Format returns the body format written by Encode.
func (c *Codec) Format() Format { return c.format }

// Supports reports whether Decode accepts data written at version.
func (c *Codec) Supports(version uint32) bool {
	if version > c.version || version < c.minVersion {
		return false
	}

	for v := version; v < c.version; v++ {
		if _, ok := c.migrations[v]; !ok {
			return false
		}
	}

	return true
}

// Encode serializes v behind a version/format header.
//
// Values the body format cannot represent (channels, functions, NaN floats
// in JSON) fail with [ErrMalformedPayload].
func (c *Codec) Encode(v any) ([]byte, error) {
	body, err := c.format.marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrMalformedPayload, c.format, err)
	}

	out := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(out[0:4], c.version)
	out[4] = byte(c.format)
	copy(out[HeaderSize:], body)

	return out, nil
}

// Peek returns the schema version and body format of encoded data without
// decoding the body.
func Peek(data []byte) (uint32, Format, error) {
	if len(data) < HeaderSize {
		return 0, 0, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrMalformedPayload, len(data), HeaderSize)
	}

	version := binary.LittleEndian.Uint32(data[0:4])

	format := Format(data[4])
	if !format.valid() {
		return version, format, fmt.Errorf("%w: unknown body format %d", ErrMalformedPayload, data[4])
	}

	return version, format, nil
}

// Decode parses data into v, which must be a non-nil pointer.
//
// Errors: [ErrUnsupportedSchema] for versions this codec cannot read,
// [ErrMalformedPayload] for anything structurally wrong.
func (c *Codec) Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrInvalidOptions, v)
	}

	version, format, err := Peek(data)
	if err != nil {
		return err
	}

	if !c.Supports(version) {
		return fmt.Errorf("%w: version %d (reading %d..%d)", ErrUnsupportedSchema, version, c.minVersion, c.version)
	}

	body := data[HeaderSize:]

	doc, err := format.unmarshalGeneric(body)
	if err != nil {
		return fmt.Errorf("%w: %s body: %w", ErrMalformedPayload, format, err)
	}

	migrated := false

	for from := version; from < c.version; from++ {
		obj, ok := doc.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: version %d document is %T, migrations need an object", ErrMalformedPayload, from, doc)
		}

		doc, err = c.migrations[from](obj)
		if err != nil {
			return fmt.Errorf("%w: migrate %d to %d: %w", ErrMalformedPayload, from, from+1, err)
		}

		migrated = true
	}

	err = checkRequired(format, rv.Type().Elem(), doc, "")
	if err != nil {
		return err
	}

	if migrated {
		body, err = format.marshal(doc)
		if err != nil {
			return fmt.Errorf("%w: re-encode migrated document: %w", ErrMalformedPayload, err)
		}
	}

	err = format.unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("%w: %s body: %w", ErrMalformedPayload, format, err)
	}

	return nil
}

// DecodeAs decodes data into a new T.
func DecodeAs[T any](c *Codec, data []byte) (T, error) {
	var v T

	err := c.Decode(data, &v)
	if err != nil {
		var zero T

		return zero, err
	}

	return v, nil
}
