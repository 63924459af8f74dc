package frost

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/group"
)

// SigningNonce holds a participant's secret nonce pair for one signing
// session. It is never serialized or transmitted and must be used at
// most once; SigningSession enforces this by clearing it after Sign.
type SigningNonce struct {
	Index dkg.ParticipantIndex
	D, E  group.Scalar // hiding, binding
}

// SigningCommitment is the round-1 broadcast: the public points
// corresponding to a signer's hiding and binding nonces.
type SigningCommitment struct {
	Index        dkg.ParticipantIndex
	HidingPoint  group.Point // D*G
	BindingPoint group.Point // E*G
}

// SignatureShare is a signer's round-2 contribution, z_i.
type SignatureShare struct {
	Index dkg.ParticipantIndex
	Z     group.Scalar
}

func sortedCommitments(commitments []*SigningCommitment) []*SigningCommitment {
	out := make([]*SigningCommitment, len(commitments))
	copy(out, commitments)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SigningSession drives one participant through a single FROST signing
// round for one message, implementing spec.md's create_session/commit/
// ingest_nonce/sign/ingest_partial/aggregate operations. A session
// signs exactly one message; a new message requires a new session and
// fresh nonces.
type SigningSession struct {
	f *FROST

	message     []byte
	keyPackage  *dkg.KeyPackage
	signerSet   []dkg.ParticipantIndex // sorted ascending, includes MyIndex
	myIndex     dkg.ParticipantIndex

	myNonce      *SigningNonce
	committed    bool
	signed       bool

	commitments map[dkg.ParticipantIndex]*SigningCommitment
	partials    map[dkg.ParticipantIndex]*SignatureShare

	final *Signature
}

// NewSigningSession implements create_session: validates that the
// signer set has at least threshold members and includes this
// participant, and binds the session to one message and one KeyPackage.
func (f *FROST) NewSigningSession(kp *dkg.KeyPackage, signerIndices []dkg.ParticipantIndex, message []byte) (*SigningSession, error) {
	if len(signerIndices) < kp.Threshold {
		return nil, fmt.Errorf("frost: signer set size %d below threshold %d", len(signerIndices), kp.Threshold)
	}
	sorted := make([]dkg.ParticipantIndex, len(signerIndices))
	copy(sorted, signerIndices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	found := false
	for i, idx := range sorted {
		if idx == kp.Index {
			found = true
		}
		if i > 0 && sorted[i-1] == idx {
			return nil, fmt.Errorf("frost: duplicate signer index %d", idx)
		}
	}
	if !found {
		return nil, errors.New("frost: this participant's index is not in the signer set")
	}

	return &SigningSession{
		f:           f,
		message:     message,
		keyPackage:  kp,
		signerSet:   sorted,
		myIndex:     kp.Index,
		commitments: make(map[dkg.ParticipantIndex]*SigningCommitment),
		partials:    make(map[dkg.ParticipantIndex]*SignatureShare),
	}, nil
}

// Commit implements round 1: draws fresh hiding/binding nonces, records
// this participant's own commitment, and returns it for broadcast.
// Calling Commit twice on the same session is rejected — nonces are
// single-use by construction.
func (s *SigningSession) Commit(rng io.Reader) (*SigningCommitment, error) {
	if s.committed {
		return nil, errors.New("frost: commit already called for this session")
	}
	g := s.f.group
	d, err := g.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("frost: sampling hiding nonce: %w", err)
	}
	e, err := g.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("frost: sampling binding nonce: %w", err)
	}
	s.myNonce = &SigningNonce{Index: s.myIndex, D: d, E: e}

	commitment := &SigningCommitment{
		Index:        s.myIndex,
		HidingPoint:  g.NewPoint().ScalarMult(d, g.Generator()),
		BindingPoint: g.NewPoint().ScalarMult(e, g.Generator()),
	}
	s.commitments[s.myIndex] = commitment
	s.committed = true
	return commitment, nil
}

// IngestNonce implements ingest_nonce: records a peer's round-1
// commitment, rejecting a signer outside the session's signer set and
// a conflicting resubmission for an index already on file.
func (s *SigningSession) IngestNonce(commitment *SigningCommitment) error {
	if !s.inSignerSet(commitment.Index) {
		return fmt.Errorf("frost: commitment from index %d outside signer set", commitment.Index)
	}
	if existing, ok := s.commitments[commitment.Index]; ok {
		if !existing.HidingPoint.Equal(commitment.HidingPoint) || !existing.BindingPoint.Equal(commitment.BindingPoint) {
			return fmt.Errorf("frost: conflicting commitment for index %d", commitment.Index)
		}
		return nil
	}
	s.commitments[commitment.Index] = commitment
	return nil
}

func (s *SigningSession) inSignerSet(idx dkg.ParticipantIndex) bool {
	for _, i := range s.signerSet {
		if i == idx {
			return true
		}
	}
	return false
}

func (s *SigningSession) orderedCommitments() ([]*SigningCommitment, error) {
	if len(s.commitments) != len(s.signerSet) {
		return nil, fmt.Errorf("frost: have %d of %d required commitments", len(s.commitments), len(s.signerSet))
	}
	out := make([]*SigningCommitment, 0, len(s.signerSet))
	for _, idx := range s.signerSet {
		c, ok := s.commitments[idx]
		if !ok {
			return nil, fmt.Errorf("frost: missing commitment for signer %d", idx)
		}
		out = append(out, c)
	}
	return out, nil
}

// Sign implements round 2: computes this participant's signature share
// z_i, self-verifies it against the aggregated VSS commitments before
// returning it, and clears the secret nonce so it cannot be reused. A
// self-verification failure means either the local key share or the
// arithmetic is compromised and is always a fatal error.
func (s *SigningSession) Sign() (*SignatureShare, error) {
	if s.myNonce == nil {
		return nil, errors.New("frost: commit has not been called")
	}
	if s.signed {
		return nil, errors.New("frost: sign already called — nonce is single-use")
	}
	commitments, err := s.orderedCommitments()
	if err != nil {
		return nil, err
	}

	g := s.f.group
	R, rhos := s.f.groupCommitment(s.message, commitments)
	c := s.f.challenge(R, s.keyPackage.GroupPubkey, s.message)
	lambda := s.f.lagrangeCoefficient(s.myIndex, s.signerSet)
	myRho := rhos[s.myIndex]

	z := g.NewScalar().Mul(myRho, s.myNonce.E)
	z = g.NewScalar().Add(s.myNonce.D, z)
	lambdaS := g.NewScalar().Mul(lambda, s.keyPackage.Share)
	lambdaSC := g.NewScalar().Mul(lambdaS, c)
	z = g.NewScalar().Add(z, lambdaSC)

	myIdxScalar := curve.ScalarFromUint64(g, uint64(s.myIndex))
	P := curve.EvalVSSCommitments(g, s.keyPackage.VSSCommitments, myIdxScalar)
	myCommitment := s.commitments[s.myIndex]
	if !s.f.verifyEquation(z, myCommitment.HidingPoint, myCommitment.BindingPoint, myRho, lambda, c, P) {
		return nil, fmt.Errorf("frost: self-verification failed for signer %d — key share or arithmetic compromised", s.myIndex)
	}

	s.myNonce = nil
	s.signed = true

	share := &SignatureShare{Index: s.myIndex, Z: z}
	s.partials[s.myIndex] = share
	return share, nil
}

// IngestPartial implements ingest_partial: verifies a peer's signature
// share against that peer's committed nonce and public key share before
// accepting it, so a forged or corrupted share is caught before
// aggregation rather than silently producing an invalid signature.
func (s *SigningSession) IngestPartial(share *SignatureShare) error {
	if !s.inSignerSet(share.Index) {
		return fmt.Errorf("frost: partial signature from index %d outside signer set", share.Index)
	}
	commitments, err := s.orderedCommitments()
	if err != nil {
		return err
	}
	commitment, ok := s.commitments[share.Index]
	if !ok {
		return fmt.Errorf("frost: no commitment on file for signer %d", share.Index)
	}
	if existing, ok := s.partials[share.Index]; ok {
		if !existing.Z.Equal(share.Z) {
			return fmt.Errorf("frost: conflicting partial signature for signer %d", share.Index)
		}
		return nil
	}

	g := s.f.group
	R, rhos := s.f.groupCommitment(s.message, commitments)
	c := s.f.challenge(R, s.keyPackage.GroupPubkey, s.message)
	lambda := s.f.lagrangeCoefficient(share.Index, s.signerSet)

	idxScalar := curve.ScalarFromUint64(g, uint64(share.Index))
	P := curve.EvalVSSCommitments(g, s.keyPackage.VSSCommitments, idxScalar)
	if !s.f.verifyEquation(share.Z, commitment.HidingPoint, commitment.BindingPoint, rhos[share.Index], lambda, c, P) {
		return fmt.Errorf("frost: signature share from %d fails verification", share.Index)
	}

	s.partials[share.Index] = share
	return nil
}

// Aggregate implements aggregate: sums every signer's verified share
// into Z, assembles the final signature, and re-verifies it against the
// group public key before returning it.
func (s *SigningSession) Aggregate() (*Signature, error) {
	if len(s.partials) != len(s.signerSet) {
		return nil, fmt.Errorf("frost: have %d of %d required partial signatures", len(s.partials), len(s.signerSet))
	}
	commitments, err := s.orderedCommitments()
	if err != nil {
		return nil, err
	}
	R, _ := s.f.groupCommitment(s.message, commitments)

	g := s.f.group
	z := g.NewScalar()
	for _, idx := range s.signerSet {
		z = g.NewScalar().Add(z, s.partials[idx].Z)
	}

	sig := &Signature{R: R, Z: z}
	if !s.f.verifyFinal(s.message, sig.R, sig.Z, s.keyPackage.GroupPubkey) {
		return nil, errors.New("frost: aggregated signature failed final verification")
	}
	s.final = sig
	return sig, nil
}

// SignWithShares is a synchronous, single-process variant that executes
// both signing rounds locally given t KeyPackages for the same group.
// It exists for development and testing only — a real deployment never
// holds more than one participant's secret share in one process — and
// must be explicitly enabled via allowDevelopment to guard against
// accidental production use.
func SignWithShares(f *FROST, keyPackages []*dkg.KeyPackage, message []byte, rng io.Reader, allowDevelopment bool) (*Signature, error) {
	if !allowDevelopment {
		return nil, errors.New("frost: SignWithShares is disabled; pass allowDevelopment=true only in tests")
	}
	if len(keyPackages) < f.threshold {
		return nil, fmt.Errorf("frost: need at least %d key packages, got %d", f.threshold, len(keyPackages))
	}

	signerIndices := make([]dkg.ParticipantIndex, len(keyPackages))
	for i, kp := range keyPackages {
		signerIndices[i] = kp.Index
	}

	sessions := make([]*SigningSession, len(keyPackages))
	commitments := make([]*SigningCommitment, len(keyPackages))
	for i, kp := range keyPackages {
		sess, err := f.NewSigningSession(kp, signerIndices, message)
		if err != nil {
			return nil, err
		}
		c, err := sess.Commit(rng)
		if err != nil {
			return nil, err
		}
		sessions[i] = sess
		commitments[i] = c
	}

	for _, sess := range sessions {
		for _, c := range commitments {
			if err := sess.IngestNonce(c); err != nil {
				return nil, err
			}
		}
	}

	shares := make([]*SignatureShare, len(sessions))
	for i, sess := range sessions {
		share, err := sess.Sign()
		if err != nil {
			return nil, err
		}
		shares[i] = share
	}

	var final *Signature
	for _, sess := range sessions {
		for _, share := range shares {
			if err := sess.IngestPartial(share); err != nil {
				return nil, err
			}
		}
		sig, err := sess.Aggregate()
		if err != nil {
			return nil, err
		}
		final = sig
	}
	return final, nil
}
