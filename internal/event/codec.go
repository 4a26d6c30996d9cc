package event

import (
	"encoding/binary"
	"fmt"
)

// Field describes one entry of the record layout.
type Field struct {
	Name   string
	Offset int
	Size   int
}

var layout = []Field{
	{Name: "timestamp_us", Offset: 0, Size: 8},
	{Name: "kind", Offset: 8, Size: 4},
	{Name: "process_id", Offset: 12, Size: 4},
	{Name: "app_name", Offset: 16, Size: NameSize},
	{Name: "window", Offset: 40, Size: 4},
	{Name: "payload", Offset: 44, Size: PayloadSize},
	{Name: "reserved", Offset: 60, Size: 4},
}

// Layout returns the wire layout of a record, in offset order.
func Layout() []Field {
	out := make([]Field, len(layout))
	copy(out, layout)
	return out
}

// Encode writes the record into dst using the fixed little-endian layout.
func (r *Record) Encode(dst *[RecordSize]byte) {
	binary.LittleEndian.PutUint64(dst[0:8], r.timestamp)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(r.kind))
	binary.LittleEndian.PutUint32(dst[12:16], r.pid)
	copy(dst[16:40], r.app[:])
	binary.LittleEndian.PutUint32(dst[40:44], r.window)
	copy(dst[44:60], r.payload[:])
	binary.LittleEndian.PutUint32(dst[60:64], r.reserved)
}

// Decode reads a record from the first RecordSize bytes of b. It does not
// validate the result.
func Decode(b []byte) (Record, error) {
	var r Record
	if len(b) < RecordSize {
		return r, fmt.Errorf("%w: got %d bytes", ErrShortBuffer, len(b))
	}
	r.timestamp = binary.LittleEndian.Uint64(b[0:8])
	r.kind = Kind(binary.LittleEndian.Uint32(b[8:12]))
	r.pid = binary.LittleEndian.Uint32(b[12:16])
	copy(r.app[:], b[16:40])
	r.window = binary.LittleEndian.Uint32(b[40:44])
	copy(r.payload[:], b[44:60])
	r.reserved = binary.LittleEndian.Uint32(b[60:64])
	return r, nil
}

// AppendBinary appends the encoded record to b.
func (r Record) AppendBinary(b []byte) ([]byte, error) {
	var buf [RecordSize]byte
	r.Encode(&buf)
	return append(b, buf[:]...), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, RecordSize))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The input must be
// exactly one record long.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) > RecordSize {
		return fmt.Errorf("event: trailing data: got %d bytes, want %d", len(data), RecordSize)
	}
	dec, err := Decode(data)
	if err != nil {
		return err
	}
	*r = dec
	return nil
}
