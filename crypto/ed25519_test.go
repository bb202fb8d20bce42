package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningKeyPair(t *testing.T) {
	t.Run("SignAndVerify", func(t *testing.T) {
		kp, err := GenerateSigningKeyPair()
		require.NoError(t, err)

		msg := []byte("acksig member-1")
		sig := kp.Sign(msg)
		assert.True(t, Verify(kp.Public, msg, sig))
	})

	t.Run("TamperedMessageFails", func(t *testing.T) {
		kp, err := GenerateSigningKeyPair()
		require.NoError(t, err)

		msg := []byte("acksig member-1")
		sig := kp.Sign(msg)
		assert.False(t, Verify(kp.Public, []byte("acksig member-2"), sig))
	})

	t.Run("TamperedSignatureFails", func(t *testing.T) {
		kp, err := GenerateSigningKeyPair()
		require.NoError(t, err)

		msg := []byte("acksig member-1")
		sig := kp.Sign(msg)
		sig[0] ^= 0xff
		assert.False(t, Verify(kp.Public, msg, sig))
	})

	t.Run("RoundTripFromSeed", func(t *testing.T) {
		kp, err := GenerateSigningKeyPair()
		require.NoError(t, err)

		restored, err := SigningKeyPairFromSeed(kp.Seed())
		require.NoError(t, err)
		assert.Equal(t, kp.Public, restored.Public)
	})
}
