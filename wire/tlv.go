package wire

import (
	"encoding/binary"

	"github.com/sage-x-project/mpenc/protoerr"
)

// TLV is one decoded type-length-value frame (spec.md §4.1).
type TLV struct {
	Type  Type
	Value []byte
}

// EncodeTLV serializes a single TLV frame: 2-byte big-endian type, 2-byte
// big-endian length, then the raw value bytes. A nil value encodes as a
// zero-length payload.
func EncodeTLV(t Type, value []byte) []byte {
	out := make([]byte, 4+len(value))
	binary.BigEndian.PutUint16(out[0:2], uint16(t))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(value)))
	copy(out[4:], value)
	return out
}

// DecodedTLV is the result of decoding a single TLV frame off the front of
// a byte stream, along with the remainder of the stream.
type DecodedTLV struct {
	Type  Type
	Value []byte
	Rest  []byte
}

// DecodeTLV decodes exactly one TLV frame from the front of data.
func DecodeTLV(data []byte) (DecodedTLV, error) {
	if len(data) < 4 {
		return DecodedTLV{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "tlv: short header", nil)
	}
	t := Type(binary.BigEndian.Uint16(data[0:2]))
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < 4+length {
		return DecodedTLV{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "tlv: short value", nil)
	}
	value := make([]byte, length)
	copy(value, data[4:4+length])
	return DecodedTLV{Type: t, Value: value, Rest: data[4+length:]}, nil
}

// DecodeAllTLV decodes an entire stream into an ordered slice of TLVs.
func DecodeAllTLV(data []byte) ([]TLV, error) {
	var out []TLV
	rest := data
	for len(rest) > 0 {
		d, err := DecodeTLV(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, TLV{Type: d.Type, Value: d.Value})
		rest = d.Rest
	}
	return out, nil
}

// Short2Bin encodes a 16-bit value as a 2-byte big-endian string, e.g. the
// S2 scenario in spec.md §8: short2bin(21356) == "Sl".
func Short2Bin(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// Bin2Short decodes a 2-byte big-endian string into a 16-bit value.
func Bin2Short(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}
