// Package curve implements the secp256k1 elliptic curve primitives ROAST
// is built on: point arithmetic, canonical affine and x-only encodings, and
// the BIP-340 tagged hash used to derive domain-separated challenges.
//
// The curve arithmetic is a thin wrapper around
// github.com/ethereum/go-ethereum/crypto/secp256k1, the same package the
// original prototype (roast/curve.go, bip340.go) built on.
package curve

import (
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/secp256k1"
)

// ErrInvalidPoint is returned by DeserializePoint when the supplied bytes do
// not decode to a point lying on the curve.
var ErrInvalidPoint = errors.New("curve: invalid point")

type secp256k1Curve secp256k1.BitCurve

var sec = secp256k1Curve(*secp256k1.S256())

// G is the canonical secp256k1 base point.
var G = Point{new(big.Int).Set(sec.Gx), new(big.Int).Set(sec.Gy)}

// Order returns q, the order of the secp256k1 base point's subgroup.
func Order() *big.Int {
	return new(big.Int).Set(sec.N)
}

// Point is an affine point on secp256k1, including the identity element
// (represented here as (0, 0), which does not lie on the curve).
type Point struct {
	X *big.Int
	Y *big.Int
}

// Identity returns the group's identity element.
func Identity() Point {
	return Point{big.NewInt(0), big.NewInt(0)}
}

// IsIdentity reports whether P is the identity element.
func (p Point) IsIdentity() bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// IsOnCurve reports whether P is the identity or a valid curve point.
func (p Point) IsOnCurve() bool {
	if p.IsIdentity() {
		return true
	}
	return (*secp256k1.BitCurve)(&sec).IsOnCurve(p.X, p.Y)
}

// HasEvenY reports whether P's Y coordinate is even, as used by BIP-340.
func (p Point) HasEvenY() bool {
	return p.Y.Bit(0) == 0
}

// Add returns A + B.
func Add(a, b Point) Point {
	if a.IsIdentity() {
		return b
	}
	if b.IsIdentity() {
		return a
	}
	x, y := (*secp256k1.BitCurve)(&sec).Add(a.X, a.Y, b.X, b.Y)
	return Point{x, y}
}

// Sub returns A - B.
func Sub(a, b Point) Point {
	return Add(a, Negate(b))
}

// Negate returns -P.
func Negate(p Point) Point {
	if p.IsIdentity() {
		return p
	}
	return Point{new(big.Int).Set(p.X), new(big.Int).Sub(sec.P, p.Y)}
}

// Mul returns k*P reduced modulo the curve order.
func Mul(p Point, k *big.Int) Point {
	kmod := new(big.Int).Mod(k, sec.N)
	if kmod.Sign() == 0 || p.IsIdentity() {
		return Identity()
	}
	x, y := (*secp256k1.BitCurve)(&sec).ScalarMult(p.X, p.Y, kmod.Bytes())
	return Point{x, y}
}

// BaseMul returns k*G reduced modulo the curve order.
func BaseMul(k *big.Int) Point {
	kmod := new(big.Int).Mod(k, sec.N)
	x, y := (*secp256k1.BitCurve)(&sec).ScalarBaseMult(kmod.Bytes())
	return Point{x, y}
}

// SerializedLength is the length in bytes of the uncompressed wire encoding
// produced by SerializePoint.
const SerializedLength = 65

// SerializePoint encodes P as an uncompressed SEC1 point (0x04 || X || Y),
// preserving full (x, y) round-trip as required by spec.md §6. The identity
// element serializes to the all-zero sentinel of the same length.
func SerializePoint(p Point) []byte {
	if p.IsIdentity() {
		return make([]byte, SerializedLength)
	}
	return (*secp256k1.BitCurve)(&sec).Marshal(p.X, p.Y)
}

// DeserializePoint decodes bytes produced by SerializePoint. It returns
// ErrInvalidPoint if the bytes do not represent the identity sentinel or a
// valid point on the curve.
func DeserializePoint(b []byte) (Point, error) {
	if len(b) != SerializedLength {
		return Point{}, ErrInvalidPoint
	}
	zero := true
	for _, c := range b {
		if c != 0 {
			zero = false
			break
		}
	}
	if zero {
		return Identity(), nil
	}
	x, y := (*secp256k1.BitCurve)(&sec).Unmarshal(b)
	if x == nil || y == nil {
		return Point{}, ErrInvalidPoint
	}
	p := Point{x, y}
	if !p.IsOnCurve() {
		return Point{}, ErrInvalidPoint
	}
	return p, nil
}

// BytesFromPoint returns the 32-byte big-endian X coordinate of P, suitable
// for BIP-340-style tagged hashing. It does not encode Y or distinguish the
// identity element; it is only meant for hash-input use via H.
func BytesFromPoint(p Point) [32]byte {
	var out [32]byte
	p.X.FillBytes(out[:])
	return out
}

// IntFromBytes interprets b as a big-endian unsigned integer.
func IntFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Bytes32 returns the big-endian 32-byte representation of x.
func Bytes32(x *big.Int) [32]byte {
	var out [32]byte
	x.FillBytes(out[:])
	return out
}

// SampleScalar draws a uniform scalar in [1, q-1] using a cryptographically
// secure RNG, rejecting out-of-range draws to avoid modular bias.
func SampleScalar(rand func([]byte) (int, error)) (*big.Int, error) {
	b := make([]byte, 32)
	for {
		if _, err := rand(b); err != nil {
			return nil, err
		}
		x := IntFromBytes(b)
		if x.Sign() != 0 && x.Cmp(sec.N) < 0 {
			return x, nil
		}
	}
}

// TaggedHash implements the BIP-340 tagged hash construction:
//
//	tagged_hash(tag, msg) = SHA256(SHA256(tag) || SHA256(tag) || msg)
func TaggedHash(tag string, msg []byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashItem is either a Point (serialized via BytesFromPoint) or a raw byte
// string, as consumed by H.
type HashItem interface{ isHashItem() }

// PointItem wraps a Point for use as an H argument.
type PointItem struct{ Point Point }

func (PointItem) isHashItem() {}

// BytesItem wraps a byte string for use as an H argument.
type BytesItem []byte

func (BytesItem) isHashItem() {}

// H concatenates items (points via their X-only encoding, byte strings
// verbatim), applies the BIP-340 tagged hash under tag, and reduces the
// result modulo the curve order q. This implements spec.md §4.1's H(tag,
// items…).
func H(tag string, items ...HashItem) *big.Int {
	var buf []byte
	for _, item := range items {
		switch v := item.(type) {
		case PointItem:
			xb := BytesFromPoint(v.Point)
			buf = append(buf, xb[:]...)
		case BytesItem:
			buf = append(buf, v...)
		}
	}
	digest := TaggedHash(tag, buf)
	return new(big.Int).Mod(IntFromBytes(digest[:]), sec.N)
}
