package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarBaseMult(t *testing.T) {
	t.Run("DiffieHellmanAgreement", func(t *testing.T) {
		a, err := GenerateScalar()
		require.NoError(t, err)
		b, err := GenerateScalar()
		require.NoError(t, err)

		aPub, err := ScalarBaseMult(a)
		require.NoError(t, err)
		bPub, err := ScalarBaseMult(b)
		require.NoError(t, err)

		s1, err := ScalarMult(a, bPub)
		require.NoError(t, err)
		s2, err := ScalarMult(b, aPub)
		require.NoError(t, err)

		assert.Equal(t, s1, s2)
		assert.False(t, s1.IsZero())
	})

	t.Run("ClampingIsApplied", func(t *testing.T) {
		s, err := GenerateScalar()
		require.NoError(t, err)
		assert.Zero(t, s[0]&0x07)
		assert.Zero(t, s[31] & 0x80)
		assert.Equal(t, byte(0x40), s[31]&0x40)
	})

	t.Run("PointRoundTrip", func(t *testing.T) {
		s, err := GenerateScalar()
		require.NoError(t, err)
		p, err := ScalarBaseMult(s)
		require.NoError(t, err)

		p2, err := PointFromBytes(p.Bytes())
		require.NoError(t, err)
		assert.Equal(t, p, p2)
	})

	t.Run("ZeroizeClearsScalar", func(t *testing.T) {
		s, err := GenerateScalar()
		require.NoError(t, err)
		s.Zeroize()
		var zero Scalar
		assert.Equal(t, zero, s)
	})
}
