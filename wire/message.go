package wire

import (
	"github.com/sage-x-project/mpenc/protoerr"
)

// GreetMessage is the decoded/encoded TLV projection of a greet wire
// packet (spec.md §3's ProtocolMessage, §4.1's encoding order). Greeter
// builds one of these from its merged CLIQUES+ASKE output and the codec
// turns it into bytes, and vice versa on receipt.
type GreetMessage struct {
	Signature        []byte // MESSAGE_SIGNATURE, 64 bytes when present
	Version          byte
	GreetType        GreetType
	Source           string
	Dest             string // "" denotes broadcast
	Members          []string
	IntKeys          [][]byte
	Nonces           [][]byte
	PubKeys          [][]byte
	SessionSignature []byte // optional, 64 bytes when present
	SigningKey       []byte // optional, present on quit
}

// EncodeUnsigned serializes everything in the message that follows the
// MESSAGE_SIGNATURE TLV: PROTOCOL_VERSION, GREET_TYPE, SOURCE, DEST, then
// the MEMBER/INT_KEY/NONCE/PUB_KEY arrays (one TLV per element; an empty
// array emits no TLV at all), then the optional SESSION_SIGNATURE and
// SIGNING_KEY (spec.md §4.1's encoding order).
func (m *GreetMessage) EncodeUnsigned() []byte {
	var out []byte
	out = append(out, EncodeTLV(TypeProtocolVersion, []byte{m.Version})...)
	out = append(out, EncodeTLV(TypeGreetType, Short2Bin(uint16(m.GreetType)))...)
	out = append(out, EncodeTLV(TypeSource, []byte(m.Source))...)
	out = append(out, EncodeTLV(TypeDest, []byte(m.Dest))...)

	out = append(out, encodeStringArray(TypeMember, m.Members)...)
	out = append(out, encodeByteArray(TypeIntKey, m.IntKeys)...)
	out = append(out, encodeByteArray(TypeNonce, m.Nonces)...)
	out = append(out, encodeByteArray(TypePubKey, m.PubKeys)...)

	if m.SessionSignature != nil {
		out = append(out, EncodeTLV(TypeSessionSignature, m.SessionSignature)...)
	}
	if m.SigningKey != nil {
		out = append(out, EncodeTLV(TypeSigningKey, m.SigningKey)...)
	}
	return out
}

// Encode serializes the full greet message: MESSAGE_SIGNATURE followed by
// EncodeUnsigned's output.
func (m *GreetMessage) Encode() []byte {
	out := EncodeTLV(TypeMessageSignature, m.Signature)
	return append(out, m.EncodeUnsigned()...)
}

// encodeStringArray and encodeByteArray emit one TLV per element and no TLV
// at all for an empty array, so a genuinely empty array is distinguishable
// on decode from a one-element array whose sole element is a zero-length
// "null" placeholder (cliques's intermediate-key chain relies on exactly
// that placeholder surviving at position 0 of the first upflow message).
func encodeStringArray(t Type, vals []string) []byte {
	var out []byte
	for _, v := range vals {
		out = append(out, EncodeTLV(t, []byte(v))...)
	}
	return out
}

func encodeByteArray(t Type, vals [][]byte) []byte {
	var out []byte
	for _, v := range vals {
		out = append(out, EncodeTLV(t, v)...)
	}
	return out
}

// DecodeGreetMessage parses a full greet wire packet (signature onward).
// Arrays are recovered by consuming consecutive TLVs of the same type in
// order; the i-th occurrence of a type becomes element i, per spec.md
// §4.1. No TLVs of a given array type decodes as an empty slice; a
// zero-length value within the run is kept as a zero-length element
// (cliques's "null" intermediate-key placeholder).
func DecodeGreetMessage(data []byte) (*GreetMessage, error) {
	tlvs, err := DecodeAllTLV(data)
	if err != nil {
		return nil, err
	}

	m := &GreetMessage{}
	i := 0
	next := func() (TLV, bool) {
		if i >= len(tlvs) {
			return TLV{}, false
		}
		t := tlvs[i]
		i++
		return t, true
	}

	t, ok := next()
	if !ok || t.Type != TypeMessageSignature {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "greet: missing MESSAGE_SIGNATURE", nil)
	}
	if len(t.Value) > 0 {
		m.Signature = t.Value
	}

	t, ok = next()
	if !ok || t.Type != TypeProtocolVersion || len(t.Value) != 1 {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "greet: missing PROTOCOL_VERSION", nil)
	}
	m.Version = t.Value[0]

	t, ok = next()
	if !ok || t.Type != TypeGreetType || len(t.Value) != 2 {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "greet: missing GREET_TYPE", nil)
	}
	m.GreetType = GreetType(Bin2Short(t.Value))

	t, ok = next()
	if !ok || t.Type != TypeSource {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "greet: missing SOURCE", nil)
	}
	m.Source = string(t.Value)

	t, ok = next()
	if !ok || t.Type != TypeDest {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "greet: missing DEST", nil)
	}
	m.Dest = string(t.Value)

	for i < len(tlvs) && tlvs[i].Type == TypeMember {
		m.Members = append(m.Members, string(tlvs[i].Value))
		i++
	}
	for i < len(tlvs) && tlvs[i].Type == TypeIntKey {
		m.IntKeys = append(m.IntKeys, tlvs[i].Value)
		i++
	}
	for i < len(tlvs) && tlvs[i].Type == TypeNonce {
		m.Nonces = append(m.Nonces, tlvs[i].Value)
		i++
	}
	for i < len(tlvs) && tlvs[i].Type == TypePubKey {
		m.PubKeys = append(m.PubKeys, tlvs[i].Value)
		i++
	}

	if i < len(tlvs) && tlvs[i].Type == TypeSessionSignature {
		m.SessionSignature = tlvs[i].Value
		i++
	}
	if i < len(tlvs) && tlvs[i].Type == TypeSigningKey {
		m.SigningKey = tlvs[i].Value
		i++
	}

	return m, nil
}
