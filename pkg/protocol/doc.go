// Package protocol implements the pbbp2 binary wire format exchanged over
// the persistent event channel.
//
// The format is a protobuf wire-format message, but with one deliberate
// deviation from the usual proto3 behavior: zero-valued scalar fields are
// encoded explicitly. The consuming SDK treats the frame as a proto2
// message with required fields, so an encoder that omits defaults produces
// frames the SDK rejects. Field 8 (payload) is the single exception and may
// be absent when empty.
//
// # Frame layout
//
// Fields are emitted in fixed order:
//
//	1  seq_id     varint   echoed ping counter, or push sequence number
//	2  log_id     varint   unix milliseconds at encode time
//	3  service    varint   always 1 for frames we originate
//	4  method     varint   0 = control (ping/pong), 1 = event
//	5  headers    bytes    repeated submessage {1: key, 2: value}
//	8  payload    bytes    opaque, typically UTF-8 JSON (omitted when empty)
//	9  log_id     bytes    decimal-string rendering of field 2
//
// Tags follow the standard rule (field_number << 3 | wire_type) with wire
// type 0 for varints and 2 for length-delimited data. Varints carry 7 data
// bits per byte, little-endian group order, high bit set on all but the
// final byte.
//
// There is no version field; compatibility rests entirely on field-number
// stability.
//
// # File structure
//
//   - varint.go: varint encoding/decoding
//   - encoder.go: tag-aware binary encoder
//   - decoder.go: bounds-checked binary decoder
//   - frame.go: Frame type, Encode/Decode, event frames
//   - control.go: pong frames and client reconnect configuration
package protocol
