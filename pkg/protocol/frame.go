package protocol

import (
	"strconv"
	"time"
)

// Frame field numbers. The format is versionless; these numbers are the
// entire compatibility contract and must never change.
const (
	fieldSeqID     = 1 // uint64, varint
	fieldLogID     = 2 // uint64, varint
	fieldService   = 3 // int32, varint
	fieldMethod    = 4 // int32, varint
	fieldHeaders   = 5 // repeated submessage
	fieldPayload   = 8 // bytes
	fieldLogIDText = 9 // decimal string of fieldLogID

	headerFieldKey   = 1
	headerFieldValue = 2
)

// Method values carried in field 4.
const (
	MethodControl int32 = 0 // ping/pong exchange
	MethodEvent   int32 = 1 // pushed event notification
)

// DefaultService is the service identifier for frames we originate.
const DefaultService int32 = 1

// Header is one key/value entry in a frame's ordered header sequence.
type Header struct {
	Key   string
	Value string
}

// Frame is one decoded wire message.
//
// SeqID is meaningful only within a connection's ping/pong exchange: the
// server echoes it, never generates or interprets it. Client-supplied
// values are opaque and untrusted. LogID is a correlation id derived from
// the encode-time clock.
type Frame struct {
	SeqID     uint64
	LogID     uint64
	Service   int32
	Method    int32
	Headers   []Header
	Payload   []byte
	LogIDText string
}

// GetHeader returns the value of the first header with the given key,
// or the empty string if no such header exists. An absent key is never
// an error.
func (f *Frame) GetHeader(key string) string {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// Encode serializes a frame with the given fields. LogID is stamped from
// the current clock in milliseconds and mirrored as a decimal string in
// field 9.
//
// Every field is physically present in the output even when zero-valued,
// with one exception: the payload field is omitted when empty, which the
// consuming SDK tolerates.
func Encode(seqID uint64, method int32, headers []Header, payload []byte, service int32) []byte {
	logID := uint64(time.Now().UnixMilli())

	e := NewEncoder()
	e.WriteVarintField(fieldSeqID, seqID)
	e.WriteVarintField(fieldLogID, logID)
	e.WriteVarintField(fieldService, uint64(uint32(service)))
	e.WriteVarintField(fieldMethod, uint64(uint32(method)))
	for _, h := range headers {
		sub := NewEncoder()
		sub.WriteStringField(headerFieldKey, h.Key)
		sub.WriteStringField(headerFieldValue, h.Value)
		e.WriteBytesField(fieldHeaders, sub.Bytes())
	}
	if len(payload) > 0 {
		e.WriteBytesField(fieldPayload, payload)
	}
	e.WriteStringField(fieldLogIDText, strconv.FormatUint(logID, 10))

	return e.Bytes()
}

// Decode parses frame bytes. Repeated header fields accumulate in order.
// Unknown field numbers are skipped; malformed input (truncated varint,
// length past the end of the buffer, unknown wire type) returns an error
// that is fatal to the connection.
func Decode(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	f := &Frame{}

	for !d.EOF() {
		fieldNumber, wireType, err := d.ReadTag()
		if err != nil {
			return nil, err
		}

		switch {
		case fieldNumber == fieldSeqID && wireType == wireVarint:
			f.SeqID, err = d.ReadUvarint()
		case fieldNumber == fieldLogID && wireType == wireVarint:
			f.LogID, err = d.ReadUvarint()
		case fieldNumber == fieldService && wireType == wireVarint:
			var v uint64
			v, err = d.ReadUvarint()
			f.Service = int32(v)
		case fieldNumber == fieldMethod && wireType == wireVarint:
			var v uint64
			v, err = d.ReadUvarint()
			f.Method = int32(v)
		case fieldNumber == fieldHeaders && wireType == wireBytes:
			var sub []byte
			sub, err = d.ReadLenBytes()
			if err == nil {
				var h Header
				h, err = decodeHeader(sub)
				f.Headers = append(f.Headers, h)
			}
		case fieldNumber == fieldPayload && wireType == wireBytes:
			f.Payload, err = d.ReadLenBytes()
		case fieldNumber == fieldLogIDText && wireType == wireBytes:
			var b []byte
			b, err = d.ReadLenBytes()
			f.LogIDText = string(b)
		default:
			err = d.SkipField(wireType)
		}
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

// decodeHeader parses one header submessage (field 1 key, field 2 value).
func decodeHeader(data []byte) (Header, error) {
	d := NewDecoder(data)
	var h Header

	for !d.EOF() {
		fieldNumber, wireType, err := d.ReadTag()
		if err != nil {
			return h, err
		}

		switch {
		case fieldNumber == headerFieldKey && wireType == wireBytes:
			b, err := d.ReadLenBytes()
			if err != nil {
				return h, err
			}
			h.Key = string(b)
		case fieldNumber == headerFieldValue && wireType == wireBytes:
			b, err := d.ReadLenBytes()
			if err != nil {
				return h, err
			}
			h.Value = string(b)
		default:
			if err := d.SkipField(wireType); err != nil {
				return h, err
			}
		}
	}

	return h, nil
}

// MakeEventFrame builds an event frame carrying an envelope payload.
// messageID is the message id extracted from the envelope when the event
// describes a message, or empty otherwise; it is duplicated into a header
// so the SDK can deduplicate without parsing the payload.
func MakeEventFrame(payload []byte, messageID string, seqID uint64) []byte {
	headers := []Header{
		{Key: "type", Value: "event"},
		{Key: "message_id", Value: messageID},
		{Key: "sum", Value: "1"},
		{Key: "seq", Value: "0"},
	}
	return Encode(seqID, MethodEvent, headers, payload, DefaultService)
}
