package frost

import (
	"encoding/binary"
	"errors"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/group"
)

// FROST holds the cryptographic group and threshold parameters for the
// two-round FROST-style threshold signing protocol. Create instances
// with New or NewWithHasher. A FROST value is stateless and safe for
// concurrent use by independent SigningSessions.
type FROST struct {
	group      group.Group
	hasher     Hasher
	threshold  int
	maxSigners int
}

// Signature is a Schnorr-compatible signature under the group key: the
// group commitment R produced during signing, and the aggregated
// response scalar Z = Σ z_i.
type Signature struct {
	R group.Point
	Z group.Scalar
}

// Bytes encodes the signature as 64 bytes: R's encoded x-coordinate
// (the compressed point with its leading sign byte dropped) followed by
// the 32-byte big-endian Z.
func (sig *Signature) Bytes() []byte {
	rBytes := sig.R.Bytes()
	out := make([]byte, 64)
	copy(out[:32], rBytes[1:])
	copy(out[32:], sig.Z.Bytes())
	return out
}

// New creates a FROST instance with the given group and threshold
// parameters, using the BIP340-style tagged hasher — the default for
// every production signing session.
func New(g group.Group, threshold, maxSigners int) (*FROST, error) {
	return NewWithHasher(g, threshold, maxSigners, &TaggedHasher{})
}

// NewWithHasher creates a FROST instance with a custom Hasher. Used by
// cross-curve tests running the bjj reference backend, where the
// BIP340 tag construction does not apply.
func NewWithHasher(g group.Group, threshold, maxSigners int, hasher Hasher) (*FROST, error) {
	if threshold < 2 {
		return nil, errors.New("frost: threshold must be at least 2")
	}
	if maxSigners < threshold {
		return nil, errors.New("frost: maxSigners must be >= threshold")
	}
	return &FROST{group: g, hasher: hasher, threshold: threshold, maxSigners: maxSigners}, nil
}

// indexBytes encodes a participant index as 4 big-endian bytes, used
// only as hash input (not as a scalar, so it needs no group context).
func indexBytes(i dkg.ParticipantIndex) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(i))
	return buf[:]
}

// bindingFactors computes rho_i = H_rho(i, B, message) for every signer
// present in commitments, where B is the encoded commitment list sorted
// ascending by participant index.
func (f *FROST) bindingFactors(message []byte, commitments []*SigningCommitment) map[dkg.ParticipantIndex]group.Scalar {
	sorted := sortedCommitments(commitments)

	var encoded []byte
	for _, c := range sorted {
		encoded = append(encoded, indexBytes(c.Index)...)
		encoded = append(encoded, c.HidingPoint.Bytes()...)
		encoded = append(encoded, c.BindingPoint.Bytes()...)
	}
	encCommitList := f.hasher.H5(f.group, encoded)

	out := make(map[dkg.ParticipantIndex]group.Scalar, len(sorted))
	for _, c := range sorted {
		out[c.Index] = f.hasher.H1(f.group, message, encCommitList, indexBytes(c.Index))
	}
	return out
}

// groupCommitment computes R = Σ_i (D_i + rho_i*E_i), returning it
// alongside the per-signer binding factors so Sign and Aggregate always
// agree on both.
func (f *FROST) groupCommitment(message []byte, commitments []*SigningCommitment) (group.Point, map[dkg.ParticipantIndex]group.Scalar) {
	rhos := f.bindingFactors(message, commitments)
	R := f.group.NewPoint()
	for _, c := range commitments {
		rho := rhos[c.Index]
		rhoE := f.group.NewPoint().ScalarMult(rho, c.BindingPoint)
		term := f.group.NewPoint().Add(c.HidingPoint, rhoE)
		R = f.group.NewPoint().Add(R, term)
	}
	return R, rhos
}

// challenge computes c = H_chal(R, Y, message).
func (f *FROST) challenge(R, groupPubkey group.Point, message []byte) group.Scalar {
	return f.hasher.H2(f.group, R.Bytes(), groupPubkey.Bytes(), message)
}

// lagrangeCoefficient computes lambda_i = Π_{j in signerIndices, j != i} j/(j-i) mod n.
func (f *FROST) lagrangeCoefficient(i dkg.ParticipantIndex, signerIndices []dkg.ParticipantIndex) group.Scalar {
	num := curve.ScalarFromUint64(f.group, 1)
	den := curve.ScalarFromUint64(f.group, 1)
	iScalar := curve.ScalarFromUint64(f.group, uint64(i))

	for _, j := range signerIndices {
		if j == i {
			continue
		}
		jScalar := curve.ScalarFromUint64(f.group, uint64(j))
		num = f.group.NewScalar().Mul(num, jScalar)
		diff := f.group.NewScalar().Sub(jScalar, iScalar)
		den = f.group.NewScalar().Mul(den, diff)
	}
	denInv, _ := f.group.NewScalar().Invert(den)
	return f.group.NewScalar().Mul(num, denInv)
}

// verifyEquation checks z*G == D + rho*E + lambda*c*P, the shared
// acceptance criterion used for self-verification (Sign), peer
// verification (IngestPartial), and single-share checks.
func (f *FROST) verifyEquation(z group.Scalar, D, E group.Point, rho group.Scalar, lambda, c group.Scalar, P group.Point) bool {
	lhs := f.group.NewPoint().ScalarMult(z, f.group.Generator())

	rhoE := f.group.NewPoint().ScalarMult(rho, E)
	lambdaC := f.group.NewScalar().Mul(lambda, c)
	lambdaCP := f.group.NewPoint().ScalarMult(lambdaC, P)

	rhs := f.group.NewPoint().Add(D, rhoE)
	rhs = f.group.NewPoint().Add(rhs, lambdaCP)
	return lhs.Equal(rhs)
}

// verifyFinal checks z*G == R + c*Y, the acceptance criterion for a
// fully aggregated signature.
func (f *FROST) verifyFinal(message []byte, R group.Point, z group.Scalar, groupPubkey group.Point) bool {
	c := f.challenge(R, groupPubkey, message)
	lhs := f.group.NewPoint().ScalarMult(z, f.group.Generator())
	cY := f.group.NewPoint().ScalarMult(c, groupPubkey)
	rhs := f.group.NewPoint().Add(R, cY)
	return lhs.Equal(rhs)
}

// Verify checks a FROST signature against the group public key,
// implementing verify_final(Y, message, R, sigma).
func (f *FROST) Verify(message []byte, sig *Signature, groupPubkey group.Point) bool {
	return f.verifyFinal(message, sig.R, sig.Z, groupPubkey)
}
