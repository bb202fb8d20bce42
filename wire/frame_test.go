package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame(t *testing.T) {
	for _, cat := range []Category{CategoryGreet, CategoryData, CategoryQuery, CategoryError} {
		payload := EncodeTLV(TypePadding, []byte("hello"))
		s := EncodeFrame(cat, ProtocolVersion, payload)
		assert.Contains(t, s, framePrefix)

		d, err := DecodeFrame(s)
		require.NoError(t, err)
		assert.Equal(t, cat, d.Category)
		assert.Equal(t, ProtocolVersion, d.Version)
		assert.Equal(t, payload, d.Payload)
	}
}

func TestDecodeFrameRejectsMissingPrefix(t *testing.T) {
	_, err := DecodeFrame("not-a-frame:AAAA")
	require.Error(t, err)
}

func TestDecodeFrameRejectsBadBase64(t *testing.T) {
	_, err := DecodeFrame("?mpENCv1G:not base64!!!")
	require.Error(t, err)
}

func TestDecodeFrameRejectsMissingColon(t *testing.T) {
	_, err := DecodeFrame("?mpENCv1Gnocolon")
	require.Error(t, err)
}
