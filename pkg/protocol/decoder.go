package protocol

import "errors"

// Common decoding errors. Any of these is fatal to the connection the
// frame arrived on; the caller must close rather than resynchronize.
var (
	ErrBufferTooShort  = errors.New("protocol: buffer too short")
	ErrVarintOverflow  = errors.New("protocol: varint overflow")
	ErrUnknownWireType = errors.New("protocol: unknown wire type")
	ErrLengthTooLarge  = errors.New("protocol: length exceeds remaining buffer")
)

// Decoder is a binary decoder that reads protobuf-style fields from a
// byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := DecodeUvarint(d.buf[d.pos:])
	switch {
	case n == -1:
		return 0, ErrBufferTooShort
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadTag reads a field tag and splits it into field number and wire type.
func (d *Decoder) ReadTag() (fieldNumber int, wireType int, err error) {
	tag, err := d.ReadUvarint()
	if err != nil {
		return 0, 0, err
	}
	return int(tag >> 3), int(tag & 0x7), nil
}

// ReadLenBytes reads a varint length prefix followed by that many raw bytes.
// Returns a copy of the bytes (safe to retain).
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	// Bounds check: length must fit in remaining buffer. A huge length
	// prefix must fail before allocation.
	if length > uint64(d.Remaining()) {
		return nil, ErrLengthTooLarge
	}
	n := int(length)
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// SkipField consumes a field value of the given wire type.
// Unknown field numbers are tolerated for forward compatibility, but an
// unknown wire type is unrecoverable since the value length is unknowable.
func (d *Decoder) SkipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := d.ReadUvarint()
		return err
	case wireBytes:
		_, err := d.ReadLenBytes()
		return err
	default:
		return ErrUnknownWireType
	}
}
