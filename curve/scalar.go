package curve

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/kgroups/rootkey/group"
)

// ErrInvalidScalar is returned when a byte string is not exactly 32
// bytes long or does not decode to a value in [0, n).
var ErrInvalidScalar = errors.New("curve: scalar out of range")

// Scalar wraps secp256k1.ModNScalar to implement group.Scalar.
type Scalar struct {
	inner secp256k1.ModNScalar
}

// Add implements group.Scalar.Add.
func (s *Scalar) Add(a, b group.Scalar) group.Scalar {
	s.inner.Add2(&a.(*Scalar).inner, &b.(*Scalar).inner)
	return s
}

// Sub implements group.Scalar.Sub.
func (s *Scalar) Sub(a, b group.Scalar) group.Scalar {
	var negB secp256k1.ModNScalar
	negB.Set(&b.(*Scalar).inner)
	negB.Negate()
	s.inner.Add2(&a.(*Scalar).inner, &negB)
	return s
}

// Mul implements group.Scalar.Mul.
func (s *Scalar) Mul(a, b group.Scalar) group.Scalar {
	s.inner.Mul2(&a.(*Scalar).inner, &b.(*Scalar).inner)
	return s
}

// Negate implements group.Scalar.Negate.
func (s *Scalar) Negate(a group.Scalar) group.Scalar {
	s.inner.Set(&a.(*Scalar).inner)
	s.inner.Negate()
	return s
}

// Invert implements group.Scalar.Invert.
func (s *Scalar) Invert(a group.Scalar) (group.Scalar, error) {
	aScalar := a.(*Scalar)
	if aScalar.inner.IsZero() {
		return nil, errors.New("curve: cannot invert zero scalar")
	}
	s.inner.Set(&aScalar.inner)
	s.inner.InverseValNonConst()
	return s, nil
}

// Set implements group.Scalar.Set.
func (s *Scalar) Set(a group.Scalar) group.Scalar {
	s.inner.Set(&a.(*Scalar).inner)
	return s
}

// Bytes implements group.Scalar.Bytes, returning the canonical 32-byte
// big-endian encoding.
func (s *Scalar) Bytes() []byte {
	b := s.inner.Bytes()
	return b[:]
}

// SetBytes implements group.Scalar.SetBytes. It accepts exactly 32
// big-endian bytes and returns ErrInvalidScalar for a value >= n; in
// that case the receiver is left holding the value reduced mod n.
func (s *Scalar) SetBytes(data []byte) (group.Scalar, error) {
	if len(data) != 32 {
		return nil, ErrInvalidScalar
	}
	if overflow := s.inner.SetByteSlice(data); overflow {
		return nil, ErrInvalidScalar
	}
	return s, nil
}

// Equal implements group.Scalar.Equal.
func (s *Scalar) Equal(b group.Scalar) bool {
	return s.inner.Equals(&b.(*Scalar).inner)
}

// IsZero implements group.Scalar.IsZero.
func (s *Scalar) IsZero() bool {
	return s.inner.IsZero()
}

// ModN exposes the underlying secp256k1.ModNScalar for packages (dkg,
// frost) that need direct access to curve-specific operations not
// covered by the group.Scalar contract, such as ECDH.
func (s *Scalar) ModN() *secp256k1.ModNScalar {
	return &s.inner
}
