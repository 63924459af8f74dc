package dkg

import (
	"errors"
	"fmt"
	"io"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/group"
)

// RefreshSession implements proactive share rotation: every current
// KeyPackage holder runs one of these, contributing a fresh polynomial
// g(x) with g(0)=0 so that Σ_i g_i(0) = 0 and the group public key is
// unchanged. It reuses Session's round-1/round-2/VSS machinery; the
// only structural difference is that the constant-term commitment is
// never generated or transmitted, since it is always the identity point.
type RefreshSession struct {
	cfg   Config
	state State

	coefficients []group.Scalar // coefficients[0] is always the zero scalar

	round1 map[ParticipantIndex]*Round1Package // Commitments has len == Threshold-1 (degrees 1..t-1)
	round2 map[ParticipantIndex]group.Scalar

	failedPeer ParticipantIndex
	failedKind Kind
}

// NewRefreshSession creates a refresh session using the same config
// shape as a DKG session (the existing group membership and threshold
// are unchanged by a refresh).
func NewRefreshSession(cfg Config) (*RefreshSession, error) {
	if cfg.Group == nil {
		cfg.Group = curve.Secp256k1{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RefreshSession{
		cfg:    cfg,
		state:  StateInitialized,
		round1: make(map[ParticipantIndex]*Round1Package),
		round2: make(map[ParticipantIndex]group.Scalar),
	}, nil
}

func (s *RefreshSession) State() State { return s.state }

func (s *RefreshSession) fail(peer ParticipantIndex, kind Kind, err error) error {
	s.state = StateFailed
	s.failedPeer = peer
	s.failedKind = kind
	s.coefficients = nil
	return blame(peer, kind, err)
}

// Round1 samples g(x) with a forced zero constant term and publishes
// commitments only to its degree-1..t-1 coefficients.
func (s *RefreshSession) Round1(rng io.Reader) (*Round1Package, error) {
	if s.coefficients != nil {
		return nil, errors.New("dkg: refresh round1 already generated")
	}
	g := s.cfg.Group
	coeffs := make([]group.Scalar, s.cfg.Threshold)
	coeffs[0] = g.NewScalar() // g(0) = 0, forcing group pubkey invariance

	commitments := make([]group.Point, s.cfg.Threshold-1)
	for i := 1; i < s.cfg.Threshold; i++ {
		c, err := g.RandomScalar(rng)
		if err != nil {
			return nil, fmt.Errorf("dkg: sampling refresh coefficient %d: %w", i, err)
		}
		coeffs[i] = c
		commitments[i-1] = g.NewPoint().ScalarMult(c, g.Generator())
	}
	s.coefficients = coeffs

	pkg := &Round1Package{Index: s.cfg.MyIndex, Commitments: commitments}
	s.round1[s.cfg.MyIndex] = pkg
	return pkg, nil
}

// IngestRound1 records a peer's refresh commitments, expecting exactly
// Threshold-1 of them (the omitted constant term is always identity).
func (s *RefreshSession) IngestRound1(pkg *Round1Package) error {
	if pkg.Index == s.cfg.MyIndex {
		return blame(pkg.Index, KindOwnIndex, errors.New("dkg: received own index in refresh round1"))
	}
	if len(pkg.Commitments) != s.cfg.Threshold-1 {
		return s.fail(pkg.Index, KindBadCommitmentLength, fmt.Errorf("dkg: expected %d refresh commitments, got %d", s.cfg.Threshold-1, len(pkg.Commitments)))
	}
	if existing, ok := s.round1[pkg.Index]; ok {
		if !commitmentsEqual(existing.Commitments, pkg.Commitments) {
			return s.fail(pkg.Index, KindDuplicateIndex, errors.New("dkg: conflicting refresh commitments for same index"))
		}
		return nil
	}
	s.round1[pkg.Index] = pkg
	if len(s.round1) == s.cfg.MaxSigners {
		s.state = StateRound1Complete
	}
	return nil
}

// Round2 distributes g_i(j) to every other holder, sealed exactly as in
// a fresh DKG round 2 (round number 2, same conversation key).
func (s *RefreshSession) Round2() ([]*Round2Package, error) {
	if s.state != StateRound1Complete {
		return nil, fmt.Errorf("dkg: refresh round2 requires state round1_complete, got %s", s.state)
	}
	g := s.cfg.Group
	myScalar := curve.ScalarFromUint64(g, uint64(s.cfg.MyIndex))
	s.round2[s.cfg.MyIndex] = curve.EvalPolynomial(g, s.coefficients, myScalar)

	out := make([]*Round2Package, 0, s.cfg.MaxSigners-1)
	for idx := 1; idx <= s.cfg.MaxSigners; idx++ {
		toIdx := ParticipantIndex(idx)
		if toIdx == s.cfg.MyIndex {
			continue
		}
		toScalar := curve.ScalarFromUint64(g, uint64(toIdx))
		share := curve.EvalPolynomial(g, s.coefficients, toScalar)
		ciphertext, err := sealShare(g, s.cfg.MySecretKey, s.cfg.Participants[toIdx-1], s.cfg.SessionID, 2, share)
		if err != nil {
			return nil, fmt.Errorf("dkg: sealing refresh share for %d: %w", toIdx, err)
		}
		out = append(out, &Round2Package{FromIndex: s.cfg.MyIndex, ToIndex: toIdx, Ciphertext: ciphertext})
	}
	if len(s.round2) == s.cfg.MaxSigners {
		s.state = StateRound2Complete
	}
	return out, nil
}

// IngestRound2 decrypts and verifies a refresh share: since g(0)=0, the
// verification equation is share*G == x * EvalVSSCommitments(peer's
// degree-1..t-1 commitments, x).
func (s *RefreshSession) IngestRound2(pkg *Round2Package) error {
	if pkg.ToIndex != s.cfg.MyIndex {
		return s.fail(pkg.FromIndex, KindWrongRecipient, errors.New("dkg: refresh package addressed to another participant"))
	}
	if s.state != StateRound1Complete {
		return fmt.Errorf("dkg: refresh ingest_round2 requires state round1_complete, got %s", s.state)
	}
	if _, ok := s.round2[pkg.FromIndex]; ok {
		return nil
	}
	sender, ok := s.round1[pkg.FromIndex]
	if !ok {
		return s.fail(pkg.FromIndex, KindVSSMismatch, errors.New("dkg: no refresh commitments on file for sender"))
	}

	g := s.cfg.Group
	share, err := openShare(g, s.cfg.MySecretKey, s.cfg.Participants[pkg.FromIndex-1], s.cfg.SessionID, 2, pkg.Ciphertext)
	if err != nil {
		return s.fail(pkg.FromIndex, KindDecryptionFailure, err)
	}

	myScalar := curve.ScalarFromUint64(g, uint64(s.cfg.MyIndex))
	lhs := g.NewPoint().ScalarMult(share, g.Generator())
	rhs := g.NewPoint().ScalarMult(myScalar, curve.EvalVSSCommitments(g, sender.Commitments, myScalar))
	if !lhs.Equal(rhs) {
		return s.fail(pkg.FromIndex, KindVSSMismatch, errors.New("dkg: refresh share fails VSS verification"))
	}

	s.round2[pkg.FromIndex] = share
	if len(s.round2) == s.cfg.MaxSigners {
		s.state = StateRound2Complete
	}
	return nil
}

// Finalize folds every holder's refresh contribution into old, producing
// a new KeyPackage whose GroupPubkey is bit-identical to old's.
func (s *RefreshSession) Finalize(old *KeyPackage) (*KeyPackage, error) {
	if s.state != StateRound2Complete {
		return nil, fmt.Errorf("dkg: refresh finalize requires state round2_complete, got %s", s.state)
	}
	g := s.cfg.Group

	delta := g.NewScalar()
	for idx := 1; idx <= s.cfg.MaxSigners; idx++ {
		delta = g.NewScalar().Add(delta, s.round2[ParticipantIndex(idx)])
	}
	newShare := g.NewScalar().Add(old.Share, delta)

	newVSS := make([]group.Point, s.cfg.Threshold)
	newVSS[0] = g.NewPoint().Set(old.VSSCommitments[0])
	for k := 1; k < s.cfg.Threshold; k++ {
		sum := g.NewPoint()
		for idx := 1; idx <= s.cfg.MaxSigners; idx++ {
			sum = g.NewPoint().Add(sum, s.round1[ParticipantIndex(idx)].Commitments[k-1])
		}
		newVSS[k] = g.NewPoint().Add(old.VSSCommitments[k], sum)
	}

	s.state = StateFinalized
	s.coefficients = nil
	s.round2 = nil

	return &KeyPackage{
		Index:          old.Index,
		Share:          newShare,
		GroupPubkey:    old.GroupPubkey,
		VSSCommitments: newVSS,
		Threshold:      old.Threshold,
		MaxSigners:     old.MaxSigners,
	}, nil
}
