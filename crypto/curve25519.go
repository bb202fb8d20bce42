// Package crypto provides the cryptographic primitives shared by the
// CLIQUES, ASKE, and wire-codec packages: Curve25519 scalar arithmetic,
// Ed25519 signing, and HKDF-SHA256 key derivation. (AES-128-CTR data
// encryption lives in the wire package.)
//
// Grounded on crypto/keys/x25519.go and crypto/keys/ed25519.go of the
// teacher repository, generalized from ECDH-style shared-secret derivation
// to the raw scalar/point operations CLIQUES needs to build its
// intermediate-key chain.
package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// ScalarSize and PointSize are both 32 bytes for Curve25519.
const (
	ScalarSize = 32
	PointSize  = 32
)

// Scalar is a 32-byte Curve25519 private scalar, always stored clamped.
type Scalar [ScalarSize]byte

// Point is a 32-byte Curve25519 group element.
type Point [PointSize]byte

// BasePoint is the standard Curve25519 base point G (u=9).
var BasePoint = Point{9}

// GenerateScalar draws a fresh private scalar from the CSPRNG and clamps it
// per the Curve25519 convention (RFC 7748 §5).
func GenerateScalar() (Scalar, error) {
	var s Scalar
	if _, err := rand.Read(s[:]); err != nil {
		return Scalar{}, fmt.Errorf("crypto: generate scalar: %w", err)
	}
	clamp(&s)
	return s, nil
}

// clamp applies the Curve25519 clamping rule in place.
func clamp(s *Scalar) {
	s[0] &= 248
	s[31] &= 127
	s[31] |= 64
}

// ScalarBaseMult returns s·G.
func ScalarBaseMult(s Scalar) (Point, error) {
	return ScalarMult(s, BasePoint)
}

// ScalarMult returns s·p, the Curve25519 scalar multiplication of point p by
// scalar s. Used both to advance the CLIQUES intermediate-key chain and to
// derive the final shared value from a member's cardinal key.
func ScalarMult(s Scalar, p Point) (Point, error) {
	var out Point
	dst, err := curve25519.X25519(s[:], p[:])
	if err != nil {
		return Point{}, fmt.Errorf("crypto: scalar mult: %w", err)
	}
	copy(out[:], dst)
	return out, nil
}

// IsZero reports whether p is the all-zero point, which Curve25519
// multiplication produces for a small-order input. ScalarMult never returns
// it: the underlying X25519 call reports an error for that result instead.
func (p Point) IsZero() bool {
	var zero Point
	return p == zero
}

// Bytes returns a copy of the point's raw 32-byte encoding.
func (p Point) Bytes() []byte {
	out := make([]byte, PointSize)
	copy(out, p[:])
	return out
}

// PointFromBytes parses a 32-byte wire encoding into a Point.
func PointFromBytes(b []byte) (Point, error) {
	var p Point
	if len(b) != PointSize {
		return Point{}, fmt.Errorf("crypto: invalid point length %d", len(b))
	}
	copy(p[:], b)
	return p, nil
}

// Bytes returns a copy of the scalar's raw 32-byte encoding.
func (s Scalar) Bytes() []byte {
	out := make([]byte, ScalarSize)
	copy(out, s[:])
	return out
}

// Zeroize overwrites the scalar's memory with zero bytes. Called on quit
// (cliques.Member.AkaQuit) so ephemeral private material does not linger.
func (s *Scalar) Zeroize() {
	for i := range s {
		s[i] = 0
	}
}
