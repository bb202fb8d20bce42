package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SigningKeyPair is an Ed25519 key pair, used both for ASKE's per-member
// ephemeral signing key and for a member's long-term static identity.
// Grounded on the KeyPair shape of crypto/keys/ed25519.go, trimmed to the
// two operations this module actually needs (Sign/Verify) and stripped of
// the generic KeyManager/KeyExporter machinery the teacher builds around
// it, which this spec has no use for.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// GenerateSigningKeyPair creates a fresh Ed25519 key pair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &SigningKeyPair{Public: pub, private: priv}, nil
}

// SigningKeyPairFromSeed reconstructs a key pair from a 32-byte seed, used
// by cmd/mpenc-cli to reload a member's stored static signing key.
func SigningKeyPairFromSeed(seed []byte) (*SigningKeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: invalid ed25519 seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &SigningKeyPair{Public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// Seed returns the 32-byte seed backing the private key.
func (kp *SigningKeyPair) Seed() []byte {
	return kp.private.Seed()
}

// Sign signs message with the private key.
func (kp *SigningKeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.private, message)
}

// Verify reports whether sig is a valid Ed25519 signature over message
// under pub.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

// Zeroize overwrites the private key material with zero bytes.
func (kp *SigningKeyPair) Zeroize() {
	for i := range kp.private {
		kp.private[i] = 0
	}
}
