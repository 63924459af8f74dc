package curve

import (
	"crypto/sha256"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/kgroups/rootkey/group"
)

// Secp256k1 implements group.Group over the secp256k1 curve. It is the
// default group for every component in this module; bjj.BJJ remains
// available as a second backend used only to exercise the genericity of
// the frost/dkg state machines against a different curve in tests.
type Secp256k1 struct{}

// NewScalar implements group.Group.NewScalar.
func (Secp256k1) NewScalar() group.Scalar {
	return &Scalar{}
}

// NewPoint implements group.Group.NewPoint, returning the identity.
func (Secp256k1) NewPoint() group.Point {
	p := &Point{}
	p.inner.Z.SetInt(0)
	return p
}

// Generator implements group.Group.Generator.
func (Secp256k1) Generator() group.Point {
	one := new(secp256k1.ModNScalar).SetInt(1)
	p := &Point{}
	secp256k1.ScalarBaseMultNonConst(one, &p.inner)
	return p
}

// RandomScalar implements group.Group.RandomScalar. Per the "scalar
// sample (rand_scalar_nonzero)" requirement, the draw is resampled until
// it is both in range and nonzero; secp256k1.ModNScalar.SetByteSlice
// already reduces mod n, so only the zero case needs a retry loop.
func (Secp256k1) RandomScalar(r io.Reader) (group.Scalar, error) {
	var buf [32]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		s := &Scalar{}
		s.inner.SetByteSlice(buf[:])
		if !s.inner.IsZero() {
			return s, nil
		}
	}
}

// HashToScalar implements group.Group.HashToScalar using a plain SHA-256
// over the concatenated inputs, reduced mod n. Domain-separated tagged
// hashing for FROST's rho/challenge derivations lives in TaggedHash,
// which callers reach for explicitly instead of through this interface
// method (the Group contract has no room for a tag parameter).
func (Secp256k1) HashToScalar(data ...[]byte) (group.Scalar, error) {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	s := &Scalar{}
	s.inner.SetByteSlice(h.Sum(nil))
	return s, nil
}

// secp256k1Order is the big-endian encoding of the curve order n:
// FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFE BAAEDCE6 AF48A03B BFD25E8C D0364141
var secp256k1Order = [32]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
	0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
	0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
}

// Order implements group.Group.Order, returning the big-endian encoding
// of the secp256k1 group order n.
func (Secp256k1) Order() []byte {
	b := secp256k1Order
	return b[:]
}

// TaggedHash implements the BIP340 tagged-hash construction:
// SHA256(SHA256(tag) || SHA256(tag) || data...). It underlies the
// "H_tag(data…) -> Scalar" primitive from the spec and is used directly
// by frost.TaggedHasher for binding factors and Schnorr challenges, and
// (through TaggedHashToScalar) by transport's event-signature challenge.
// The dkg package's conversation key is derived with HKDF-SHA256, not
// with TaggedHash.
func TaggedHash(tag string, data ...[]byte) []byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// TaggedHashToScalar hashes data under tag and reduces the result mod n.
func TaggedHashToScalar(tag string, data ...[]byte) group.Scalar {
	digest := TaggedHash(tag, data...)
	s := &Scalar{}
	s.inner.SetByteSlice(digest)
	return s
}

// EvalVSSCommitments evaluates, in the exponent, the public polynomial
// described by commitments at x: returns Σ_k commitments[k] * x^k. This
// is the "polynomial-point evaluation" Component A exposes so the
// signing engine can derive a signer's public key share P_i = s_i·G
// from the aggregated VSS commitments without ever learning s_i.
func EvalVSSCommitments(g group.Group, commitments []group.Point, x group.Scalar) group.Point {
	result := g.NewPoint()
	xPower := g.NewScalar()
	one := [32]byte{}
	one[31] = 1
	xPower, _ = xPower.SetBytes(one[:])
	for _, c := range commitments {
		term := g.NewPoint().ScalarMult(xPower, c)
		result = g.NewPoint().Add(result, term)
		xPower = g.NewScalar().Mul(xPower, x)
	}
	return result
}

// ScalarFromUint64 encodes n as a big-endian 32-byte scalar. Used to turn
// small integers (participant indices, Lagrange numerators) into
// group.Scalar values.
func ScalarFromUint64(g group.Group, n uint64) group.Scalar {
	var buf [32]byte
	for i := 0; i < 8; i++ {
		buf[31-i] = byte(n >> (8 * i))
	}
	s, _ := g.NewScalar().SetBytes(buf[:])
	return s
}

// EvalPolynomial evaluates, in the scalar field, the polynomial with
// coefficients coeffs (coeffs[0] is the constant term) at x, using
// Horner's method. This is the dealer-side counterpart to
// EvalVSSCommitments: the dealer who knows the coefficients evaluates
// directly; everyone else checks the result against the commitments.
func EvalPolynomial(g group.Group, coeffs []group.Scalar, x group.Scalar) group.Scalar {
	result := g.NewScalar().Set(coeffs[len(coeffs)-1])
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = g.NewScalar().Mul(result, x)
		result = g.NewScalar().Add(result, coeffs[i])
	}
	return result
}
