package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// GroupKeyInfo is the HKDF info string used to derive a CLIQUES group key
// from the raw Curve25519 shared value (spec.md §3, §4.2).
var GroupKeyInfo = []byte("mpenc group key\x01")

// GroupKeySize is the length in bytes of a derived group key.
const GroupKeySize = 32

// DeriveGroupKey runs HKDF-SHA256 over the raw Curve25519 shared value,
// using it as the salt of an empty-IKM extract step followed by an expand
// step keyed with GroupKeyInfo (spec.md §4.2). Because of that salt/IKM
// placement and the non-empty info string, its output is not the RFC 5869
// Test Case 3 vector; that vector is checked against HKDFExtractExpand.
func DeriveGroupKey(sharedValue []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, nil, sharedValue, GroupKeyInfo)
	out := make([]byte, GroupKeySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("crypto: derive group key: %w", err)
	}
	return out, nil
}

// HKDFExtractExpand is the general two-step HKDF-SHA256 primitive, exposed
// for the sanity-check test vector in spec.md §8 (RFC 5869 Test Case 3).
func HKDFExtractExpand(salt, ikm, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("crypto: hkdf: %w", err)
	}
	return out, nil
}
