package dkg

import (
	"errors"
	"fmt"
	"io"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/group"
)

// Session holds one participant's state through a single DKG run. A
// Session is owned by the participant's driving goroutine; it is never
// shared across tasks. Create one with NewSession.
type Session struct {
	cfg   Config
	state State

	coefficients []group.Scalar // our secret polynomial, ephemeral; nil after Finalize/failure

	round1 map[ParticipantIndex]*Round1Package
	round2 map[ParticipantIndex]group.Scalar // self-entry is cleartext, never transmitted

	failedPeer ParticipantIndex
	failedKind Kind
}

// NewSession implements create_session: validates the configuration and
// returns a Session in the initialized state.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Group == nil {
		cfg.Group = curve.Secp256k1{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:    cfg,
		state:  StateInitialized,
		round1: make(map[ParticipantIndex]*Round1Package),
		round2: make(map[ParticipantIndex]group.Scalar),
	}, nil
}

// State reports the session's current position in the state machine.
func (s *Session) State() State { return s.state }

// Failure reports which peer (if any) caused a transition to the failed
// state, and why.
func (s *Session) Failure() (ParticipantIndex, Kind) { return s.failedPeer, s.failedKind }

func (s *Session) fail(peer ParticipantIndex, kind Kind, err error) error {
	s.state = StateFailed
	s.failedPeer = peer
	s.failedKind = kind
	s.coefficients = nil
	return blame(peer, kind, err)
}

// Round1 samples this participant's degree-(t-1) polynomial, publishes
// commitments to its coefficients, and records a self-entry in
// round1Packages so the "have all n" check can be unified between self
// and peers. The session's state is unchanged (round1 may only be
// called once; a second call is rejected).
func (s *Session) Round1(rng io.Reader) (*Round1Package, error) {
	if s.coefficients != nil {
		return nil, errors.New("dkg: round1 already generated")
	}
	if s.state != StateInitialized {
		return nil, fmt.Errorf("dkg: round1 requires state initialized, got %s", s.state)
	}

	coeffs := make([]group.Scalar, s.cfg.Threshold)
	commitments := make([]group.Point, s.cfg.Threshold)
	g := s.cfg.Group
	for i := 0; i < s.cfg.Threshold; i++ {
		c, err := g.RandomScalar(rng)
		if err != nil {
			return nil, fmt.Errorf("dkg: sampling coefficient %d: %w", i, err)
		}
		coeffs[i] = c
		commitments[i] = g.NewPoint().ScalarMult(c, g.Generator())
	}
	s.coefficients = coeffs

	pkg := &Round1Package{Index: s.cfg.MyIndex, Commitments: commitments}
	s.round1[s.cfg.MyIndex] = pkg
	return pkg, nil
}

// IngestRound1 validates and records a peer's round 1 package. Once
// packages from all n participants (including the self-entry recorded
// by Round1) are present, the session transitions to round1_complete.
func (s *Session) IngestRound1(pkg *Round1Package) error {
	if pkg.Index == s.cfg.MyIndex {
		return blame(pkg.Index, KindOwnIndex, errors.New("dkg: received own index in round1"))
	}
	if pkg.Index < 1 || int(pkg.Index) > s.cfg.MaxSigners {
		return blame(pkg.Index, KindOutOfRange, errors.New("dkg: participant index out of range"))
	}
	if len(pkg.Commitments) != s.cfg.Threshold {
		return s.fail(pkg.Index, KindBadCommitmentLength, fmt.Errorf("dkg: expected %d commitments, got %d", s.cfg.Threshold, len(pkg.Commitments)))
	}
	if existing, ok := s.round1[pkg.Index]; ok {
		if !commitmentsEqual(existing.Commitments, pkg.Commitments) {
			return s.fail(pkg.Index, KindDuplicateIndex, errors.New("dkg: conflicting round1 packages for same index"))
		}
		return nil // idempotent duplicate
	}
	s.round1[pkg.Index] = pkg

	if len(s.round1) == s.cfg.MaxSigners {
		s.state = StateRound1Complete
	}
	return nil
}

func commitmentsEqual(a, b []group.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Round2 implements round2: for every participant other than self, it
// evaluates this participant's secret polynomial at the recipient's
// index and seals the result under the ECDH conversation key derived
// from (mySecretKey, recipientPubkey). The self-evaluation is stored
// directly in round2Packages and is never returned for transmission.
// Iteration is deterministic, ascending by recipient index.
func (s *Session) Round2() ([]*Round2Package, error) {
	if s.state != StateRound1Complete {
		return nil, fmt.Errorf("dkg: round2 requires state round1_complete, got %s", s.state)
	}

	g := s.cfg.Group
	myScalar := curve.ScalarFromUint64(g, uint64(s.cfg.MyIndex))
	selfShare := curve.EvalPolynomial(g, s.coefficients, myScalar)
	s.round2[s.cfg.MyIndex] = selfShare

	out := make([]*Round2Package, 0, s.cfg.MaxSigners-1)
	for idx := 1; idx <= s.cfg.MaxSigners; idx++ {
		toIdx := ParticipantIndex(idx)
		if toIdx == s.cfg.MyIndex {
			continue
		}
		toScalar := curve.ScalarFromUint64(g, uint64(toIdx))
		share := curve.EvalPolynomial(g, s.coefficients, toScalar)

		peerPubkey := s.cfg.Participants[toIdx-1]
		ciphertext, err := sealShare(g, s.cfg.MySecretKey, peerPubkey, s.cfg.SessionID, 2, share)
		if err != nil {
			return nil, fmt.Errorf("dkg: sealing share for %d: %w", toIdx, err)
		}
		out = append(out, &Round2Package{
			FromIndex:  s.cfg.MyIndex,
			ToIndex:    toIdx,
			Ciphertext: ciphertext,
		})
	}

	if len(s.round2) == s.cfg.MaxSigners {
		s.state = StateRound2Complete
	}
	return out, nil
}

// IngestRound2 decrypts a peer's share and verifies it against that
// peer's round1 commitments via Feldman's VSS check:
// share*G == Σ_k commitments[k]*myIndex^k. Any failure — wrong
// recipient, missing commitments, decryption failure, or a bad VSS
// opening — moves the session to the terminal failed state and blames
// the sending peer.
func (s *Session) IngestRound2(pkg *Round2Package) error {
	if pkg.ToIndex != s.cfg.MyIndex {
		return s.fail(pkg.FromIndex, KindWrongRecipient, errors.New("dkg: round2 package addressed to another participant"))
	}
	if s.state != StateRound1Complete {
		return fmt.Errorf("dkg: ingest_round2 requires state round1_complete, got %s", s.state)
	}
	if _, ok := s.round2[pkg.FromIndex]; ok {
		return nil // idempotent duplicate
	}

	sender, ok := s.round1[pkg.FromIndex]
	if !ok {
		return s.fail(pkg.FromIndex, KindVSSMismatch, errors.New("dkg: no round1 commitments on file for sender"))
	}

	g := s.cfg.Group
	peerPubkey := s.cfg.Participants[pkg.FromIndex-1]
	share, err := openShare(g, s.cfg.MySecretKey, peerPubkey, s.cfg.SessionID, 2, pkg.Ciphertext)
	if err != nil {
		return s.fail(pkg.FromIndex, KindDecryptionFailure, err)
	}

	myScalar := curve.ScalarFromUint64(g, uint64(s.cfg.MyIndex))
	lhs := g.NewPoint().ScalarMult(share, g.Generator())
	rhs := curve.EvalVSSCommitments(g, sender.Commitments, myScalar)
	if !lhs.Equal(rhs) {
		return s.fail(pkg.FromIndex, KindVSSMismatch, errors.New("dkg: share fails VSS verification"))
	}

	s.round2[pkg.FromIndex] = share
	if len(s.round2) == s.cfg.MaxSigners {
		s.state = StateRound2Complete
	}
	return nil
}

// Finalize implements finalize: aggregates all verified shares into this
// participant's final key share, and aggregates every peer's constant-
// term commitment into the group public key. Aggregation order is
// ascending participant index; the sums themselves are commutative, so
// order only affects determinism, not correctness.
func (s *Session) Finalize() (*KeyPackage, error) {
	if s.state != StateRound2Complete {
		return nil, fmt.Errorf("dkg: finalize requires state round2_complete, got %s", s.state)
	}

	g := s.cfg.Group
	share := g.NewScalar()
	groupPubkey := g.NewPoint()
	vss := make([]group.Point, s.cfg.Threshold)
	for k := range vss {
		vss[k] = g.NewPoint()
	}

	for idx := 1; idx <= s.cfg.MaxSigners; idx++ {
		i := ParticipantIndex(idx)
		share = g.NewScalar().Add(share, s.round2[i])
		pkg := s.round1[i]
		groupPubkey = g.NewPoint().Add(groupPubkey, pkg.Commitments[0])
		for k := 0; k < s.cfg.Threshold; k++ {
			vss[k] = g.NewPoint().Add(vss[k], pkg.Commitments[k])
		}
	}

	s.state = StateFinalized
	s.coefficients = nil
	s.round2 = nil

	return &KeyPackage{
		Index:          s.cfg.MyIndex,
		Share:          share,
		GroupPubkey:    groupPubkey,
		VSSCommitments: vss,
		Threshold:      s.cfg.Threshold,
		MaxSigners:     s.cfg.MaxSigners,
	}, nil
}
