// Package record frames encoded save payloads with a checksum.
//
// Layout (little endian):
//
//	off  size  field
//	0    4     magic "SAVK"
//	4    2     record format version
//	6    2     reserved, must be zero
//	8    4     schema version (copied from the payload header)
//	12   4     payload length
//	16   4     CRC-32C over bytes [8,12) and the payload
//	20   n     payload
//
// The checksum covers the payload and the schema version, so any single
// corrupted byte in either is reported as [ErrCorrupt] instead of being
// decoded into a wrong value.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/calvinalkan/savekit/pkg/save/codec"
)

// ErrCorrupt indicates the record failed validation: bad magic, unknown
// record version, wrong length, or checksum mismatch.
//
// Recovery: the file cannot be trusted. Restore from another slot or start over.
var ErrCorrupt = errors.New("record: corrupt save")

// Format constants.
const (
	// HeaderSize is the fixed header length preceding the payload.
	HeaderSize = 20

	// FormatVersion is the record layout version written by [Marshal].
	FormatVersion uint16 = 1
)

// Header field offsets.
const (
	offMagic         = 0
	offFormatVersion = 4
	offReserved      = 6
	offSchemaVersion = 8
	offPayloadLen    = 12
	offChecksum      = 16
)

var magic = [4]byte{'S', 'A', 'V', 'K'}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is the unit persisted per slot.
type Record struct {
	SchemaVersion uint32
	Checksum      uint32
	Payload       []byte
}

// New builds a record around a codec-encoded payload and computes its checksum.
func New(payload []byte) (Record, error) {
	version, _, err := codec.Peek(payload)
	if err != nil {
		return Record{}, err
	}

	return Record{
		SchemaVersion: version,
		Checksum:      Checksum(version, payload),
		Payload:       payload,
	}, nil
}

// Checksum returns the CRC-32C of the schema version and payload.
func Checksum(schemaVersion uint32, payload []byte) uint32 {
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], schemaVersion)

	crc := crc32.Update(0, castagnoli, v[:])

	return crc32.Update(crc, castagnoli, payload)
}

// Verify reports whether the checksum matches the schema version and payload.
func (r Record) Verify() bool {
	return r.Checksum == Checksum(r.SchemaVersion, r.Payload)
}

// Marshal encodes r. The stored checksum is written as-is; use [New] to
// compute it.
func Marshal(r Record) ([]byte, error) {
	if uint64(len(r.Payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("payload of %d bytes exceeds record limit", len(r.Payload))
	}

	buf := make([]byte, HeaderSize+len(r.Payload))

	copy(buf[offMagic:], magic[:])
	binary.LittleEndian.PutUint16(buf[offFormatVersion:], FormatVersion)
	binary.LittleEndian.PutUint16(buf[offReserved:], 0)
	binary.LittleEndian.PutUint32(buf[offSchemaVersion:], r.SchemaVersion)
	binary.LittleEndian.PutUint32(buf[offPayloadLen:], uint32(len(r.Payload)))
	binary.LittleEndian.PutUint32(buf[offChecksum:], r.Checksum)
	copy(buf[HeaderSize:], r.Payload)

	return buf, nil
}

// Unmarshal parses and validates an encoded record. The returned payload
// aliases data.
//
// Every validation failure wraps [ErrCorrupt].
func Unmarshal(data []byte) (Record, error) {
	if len(data) < HeaderSize {
		return Record{}, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrCorrupt, len(data), HeaderSize)
	}

	if !bytes.Equal(data[offMagic:offMagic+4], magic[:]) {
		return Record{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[offMagic:offMagic+4])
	}

	if v := binary.LittleEndian.Uint16(data[offFormatVersion:]); v != FormatVersion {
		return Record{}, fmt.Errorf("%w: unknown record format version %d", ErrCorrupt, v)
	}

	if binary.LittleEndian.Uint16(data[offReserved:]) != 0 {
		return Record{}, fmt.Errorf("%w: reserved header bytes are not zero", ErrCorrupt)
	}

	payloadLen := binary.LittleEndian.Uint32(data[offPayloadLen:])
	if uint64(payloadLen) != uint64(len(data)-HeaderSize) {
		return Record{}, fmt.Errorf("%w: header says %d payload bytes, file has %d", ErrCorrupt, payloadLen, len(data)-HeaderSize)
	}

	r := Record{
		SchemaVersion: binary.LittleEndian.Uint32(data[offSchemaVersion:]),
		Checksum:      binary.LittleEndian.Uint32(data[offChecksum:]),
		Payload:       data[HeaderSize:],
	}

	if !r.Verify() {
		return Record{}, fmt.Errorf("%w: checksum mismatch (stored %08x, computed %08x)", ErrCorrupt, r.Checksum, Checksum(r.SchemaVersion, r.Payload))
	}

	// A matching checksum with a disagreeing payload prefix means the record
	// was assembled incorrectly, not damaged on disk.
	if version, _, err := codec.Peek(r.Payload); err != nil || version != r.SchemaVersion {
		return Record{}, fmt.Errorf("%w: header schema version %d does not match payload", ErrCorrupt, r.SchemaVersion)
	}

	return r, nil
}
