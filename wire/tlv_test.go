package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTLV(t *testing.T) {
	t.Run("S1NonEmptyValue", func(t *testing.T) {
		got := EncodeTLV(TypePadding, []byte("hello"))
		want := []byte("\x00\x00\x00\x05hello")
		assert.Equal(t, want, got)
	})

	t.Run("S1EmptyValue", func(t *testing.T) {
		got := EncodeTLV(Type(14), nil)
		want := []byte("\x00\x0e\x00\x00")
		assert.Equal(t, want, got)
	})
}

func TestDecodeTLV(t *testing.T) {
	stream := []byte("\x00\x00\x00\x05hello\x00\x00\x00\x05world")
	d, err := DecodeTLV(stream)
	require.NoError(t, err)
	assert.Equal(t, TypePadding, d.Type)
	assert.Equal(t, []byte("hello"), d.Value)
	assert.Equal(t, []byte("\x00\x00\x00\x05world"), d.Rest)
}

func TestDecodeTLVShortFrame(t *testing.T) {
	_, err := DecodeTLV([]byte{0x00, 0x01})
	require.Error(t, err)

	_, err = DecodeTLV([]byte{0x00, 0x01, 0x00, 0x05, 'a'})
	require.Error(t, err)
}

func TestTLVRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		typ Type
		val []byte
	}{
		{TypeSource, []byte("member-1")},
		{TypeIntKey, make([]byte, 32)},
		{TypePadding, nil},
		{TypeMessageSignature, make([]byte, 64)},
	} {
		enc := EncodeTLV(tc.typ, tc.val)
		dec, err := DecodeTLV(enc)
		require.NoError(t, err)
		assert.Equal(t, tc.typ, dec.Type)
		if tc.val == nil {
			assert.Empty(t, dec.Value)
		} else {
			assert.Equal(t, tc.val, dec.Value)
		}
		assert.Empty(t, dec.Rest)
	}
}

func TestShort2BinBin2Short(t *testing.T) {
	t.Run("S2", func(t *testing.T) {
		assert.Equal(t, []byte("Sl"), Short2Bin(21356))
		assert.Equal(t, uint16(1234), Bin2Short([]byte{0x04, 0xd2}))
	})

	t.Run("RoundTripAllValues", func(t *testing.T) {
		for _, v := range []uint16{0, 1, 255, 256, 21356, 65535} {
			assert.Equal(t, v, Bin2Short(Short2Bin(v)))
		}
	})
}

func TestGreetTypeBitHelpers(t *testing.T) {
	gt := FlagInit | FlagGKA | FlagSKE
	assert.True(t, gt.IsInit())
	assert.True(t, gt.IsGKA())
	assert.True(t, gt.IsSKE())
	assert.False(t, gt.IsDown())
	assert.False(t, gt.IsAux())

	down := gt.SetBit(FlagDown)
	assert.True(t, down.IsDown())

	cleared, err := down.ClearBit(FlagDown)
	require.NoError(t, err)
	assert.False(t, cleared.IsDown())

	confirmDown := FlagDown | FlagInit
	_, err = confirmDown.ClearBit(FlagDown)
	require.Error(t, err)
}
