package wire

import (
	"encoding/base64"
	"strings"

	"github.com/sage-x-project/mpenc/protoerr"
)

// Category identifies which kind of payload a framed wire packet carries
// (spec.md §4.1's outer framing).
type Category byte

const (
	CategoryGreet Category = 'G'
	CategoryData  Category = 'D'
	CategoryQuery Category = '?'
	CategoryError Category = 'E'
)

// framePrefix is the outer ASCII marker every mpENC wire packet starts
// with, followed by a protocol version digit, a one-character category
// code, then ':' and the base64 payload.
const framePrefix = "?mpENCv"

const frameSuffix = "."

// EncodeFrame wraps an already-TLV-encoded payload in the outer
// "?mpENCv<version><category>:<base64>." framing.
func EncodeFrame(category Category, version byte, payload []byte) string {
	var b strings.Builder
	b.WriteString(framePrefix)
	b.WriteByte('0' + version)
	b.WriteByte(byte(category))
	b.WriteByte(':')
	b.WriteString(base64.StdEncoding.EncodeToString(payload))
	b.WriteString(frameSuffix)
	return b.String()
}

// DecodedFrame is the result of stripping a wire packet's outer framing.
type DecodedFrame struct {
	Category Category
	Version  byte
	Payload  []byte
}

// DecodeFrame strips the outer "?mpENCv<version><category>:<base64>."
// framing and base64-decodes the payload.
func DecodeFrame(s string) (DecodedFrame, error) {
	s = strings.TrimSuffix(s, frameSuffix)
	if !strings.HasPrefix(s, framePrefix) {
		return DecodedFrame{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "frame: missing ?mpENCv prefix", nil)
	}
	rest := s[len(framePrefix):]
	if len(rest) < 2 {
		return DecodedFrame{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "frame: truncated header", nil)
	}
	version := rest[0] - '0'
	category := Category(rest[1])

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return DecodedFrame{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "frame: missing ':'", nil)
	}
	payload, err := base64.StdEncoding.DecodeString(rest[colon+1:])
	if err != nil {
		return DecodedFrame{}, protoerr.Wrap(protoerr.CodeMalformedFrame, "frame: bad base64", err)
	}
	return DecodedFrame{Category: category, Version: version, Payload: payload}, nil
}
