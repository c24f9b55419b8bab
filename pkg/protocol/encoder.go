package protocol

// Wire types used by the frame format. Only varint and length-delimited
// fields appear on the wire; groups and fixed-width fields are never emitted.
const (
	wireVarint = 0
	wireBytes  = 2
)

// Encoder is a binary encoder that appends protobuf-style fields to an
// internal buffer. It is designed for encoding whole frames without
// allocations in the hot path.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 256),
	}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next call to Reset or any Write method.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteTag appends a field tag: (fieldNumber << 3) | wireType.
func (e *Encoder) WriteTag(fieldNumber int, wireType int) {
	e.buf = AppendUvarint(e.buf, uint64(fieldNumber)<<3|uint64(wireType))
}

// WriteVarintField appends a varint field (wire type 0).
// The value is written even when zero; the frame format requires explicit
// presence of zero-valued fields.
func (e *Encoder) WriteVarintField(fieldNumber int, v uint64) {
	e.WriteTag(fieldNumber, wireVarint)
	e.buf = AppendUvarint(e.buf, v)
}

// WriteBytesField appends a length-delimited field (wire type 2).
func (e *Encoder) WriteBytesField(fieldNumber int, b []byte) {
	e.WriteTag(fieldNumber, wireBytes)
	e.buf = AppendUvarint(e.buf, uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteStringField appends a length-delimited UTF-8 string field.
func (e *Encoder) WriteStringField(fieldNumber int, s string) {
	e.WriteTag(fieldNumber, wireBytes)
	e.buf = AppendUvarint(e.buf, uint64(len(s)))
	e.buf = append(e.buf, s...)
}
