package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sagecrypto "github.com/sage-x-project/mpenc/crypto"
)

func TestSignVerifyGreetMessage(t *testing.T) {
	signer, err := sagecrypto.GenerateSigningKeyPair()
	require.NoError(t, err)

	m := sampleGreetMessage()
	SignGreetMessage(m, signer)
	assert.NotEmpty(t, m.Signature)

	require.NoError(t, VerifyGreetMessage(m, signer.Public))

	tampered := *m
	tampered.Source = "mallory"
	require.Error(t, VerifyGreetMessage(&tampered, signer.Public))
}

func TestVerifyGreetMessageRejectsMissingSignature(t *testing.T) {
	signer, err := sagecrypto.GenerateSigningKeyPair()
	require.NoError(t, err)

	m := sampleGreetMessage()
	m.Signature = nil
	require.Error(t, VerifyGreetMessage(m, signer.Public))
}

func TestSignVerifyDataMessage(t *testing.T) {
	signer, err := sagecrypto.GenerateSigningKeyPair()
	require.NoError(t, err)

	sessionID := []byte("session-id-bytes")
	groupKey := make([]byte, 32)

	m := &DataMessage{
		Version: ProtocolVersion,
		IV:      make([]byte, IVSize),
		Cipher:  []byte("ciphertext"),
	}
	SignDataMessage(m, sessionID, groupKey, signer)
	assert.NotEmpty(t, m.Signature)

	require.NoError(t, VerifyDataMessage(m, sessionID, groupKey, signer.Public))

	otherSession := []byte("different-session")
	require.Error(t, VerifyDataMessage(m, otherSession, groupKey, signer.Public))
}

func TestSessionTagDiffersOnInput(t *testing.T) {
	a := SessionTag([]byte("s1"), []byte("k1"))
	b := SessionTag([]byte("s2"), []byte("k1"))
	assert.NotEqual(t, a, b)
}
