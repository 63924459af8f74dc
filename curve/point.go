package curve

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/kgroups/rootkey/group"
)

// ErrInvalidPoint is returned when a byte string does not decode to a
// point on the curve.
var ErrInvalidPoint = errors.New("curve: invalid compressed point")

// Point wraps secp256k1.JacobianPoint to implement group.Point. Jacobian
// coordinates are kept between operations; SetBytes/Bytes convert to and
// from affine form at the boundary.
type Point struct {
	inner secp256k1.JacobianPoint
}

// Add implements group.Point.Add.
func (p *Point) Add(a, b group.Point) group.Point {
	secp256k1.AddNonConst(&a.(*Point).inner, &b.(*Point).inner, &p.inner)
	return p
}

// Sub implements group.Point.Sub.
func (p *Point) Sub(a, b group.Point) group.Point {
	var negB secp256k1.JacobianPoint
	negate(&b.(*Point).inner, &negB)
	secp256k1.AddNonConst(&a.(*Point).inner, &negB, &p.inner)
	return p
}

// Negate implements group.Point.Negate.
func (p *Point) Negate(a group.Point) group.Point {
	negate(&a.(*Point).inner, &p.inner)
	return p
}

func negate(a, result *secp256k1.JacobianPoint) {
	result.Set(a)
	result.ToAffine()
	result.Y.Negate(1)
	result.Y.Normalize()
}

// ScalarMult implements group.Point.ScalarMult.
func (p *Point) ScalarMult(s group.Scalar, q group.Point) group.Point {
	secp256k1.ScalarMultNonConst(s.(*Scalar).ModN(), &q.(*Point).inner, &p.inner)
	return p
}

// Set implements group.Point.Set.
func (p *Point) Set(a group.Point) group.Point {
	p.inner.Set(&a.(*Point).inner)
	return p
}

// Bytes implements group.Point.Bytes, returning the 33-byte SEC1
// compressed encoding. The identity point encodes to 33 zero bytes,
// which SetBytes recognizes and round-trips.
func (p *Point) Bytes() []byte {
	if p.IsIdentity() {
		return make([]byte, 33)
	}
	affine := p.inner
	affine.ToAffine()
	pub := secp256k1.NewPublicKey(&affine.X, &affine.Y)
	return pub.SerializeCompressed()
}

// SetBytes implements group.Point.SetBytes.
func (p *Point) SetBytes(data []byte) (group.Point, error) {
	if len(data) == 33 && isAllZero(data) {
		p.inner = secp256k1.JacobianPoint{}
		p.inner.Z.SetInt(0)
		return p, nil
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	pub.AsJacobian(&p.inner)
	return p, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Equal implements group.Point.Equal.
func (p *Point) Equal(b group.Point) bool {
	bp := b.(*Point)
	if p.IsIdentity() || bp.IsIdentity() {
		return p.IsIdentity() == bp.IsIdentity()
	}
	a1 := p.inner
	a1.ToAffine()
	a2 := bp.inner
	a2.ToAffine()
	return a1.X.Equals(&a2.X) && a1.Y.Equals(&a2.Y)
}

// IsIdentity implements group.Point.IsIdentity.
func (p *Point) IsIdentity() bool {
	affine := p.inner
	affine.ToAffine()
	return (affine.X.IsZero() && affine.Y.IsZero()) || p.inner.Z.IsZero()
}

// Jacobian exposes the underlying secp256k1.JacobianPoint for packages
// that need direct curve access, such as ECDH in the dkg package.
func (p *Point) Jacobian() *secp256k1.JacobianPoint {
	return &p.inner
}
