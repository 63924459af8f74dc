package session

import (
	"errors"
	"io"

	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/frost"
	"github.com/kgroups/rootkey/group"
)

// Config configures a Participant for one DKG ceremony. It is a thin
// restatement of dkg.Config plus the threshold-signing parameters
// frost.New needs, so callers only build one struct.
type Config struct {
	Group        group.Group
	Threshold    int
	MaxSigners   int
	Participants []group.Point
	MyIndex      dkg.ParticipantIndex
	MySecretKey  group.Scalar
	SessionID    [32]byte

	// Hasher overrides the FROST instance's hash function. Leave nil to
	// use the default BIP340 tagged hasher.
	Hasher frost.Hasher
}

// Participant tracks one party's state across a DKG ceremony and any
// number of subsequent signing ceremonies. Create one with
// NewParticipant; it is not safe for concurrent use.
type Participant struct {
	frost      *frost.FROST
	dkgSession *dkg.Session
	keyPackage *dkg.KeyPackage
}

// NewParticipant creates a Participant ready to run a DKG ceremony.
func NewParticipant(cfg Config) (*Participant, error) {
	f, err := newFROST(cfg)
	if err != nil {
		return nil, err
	}
	sess, err := dkg.NewSession(dkg.Config{
		SessionID:    cfg.SessionID,
		Threshold:    cfg.Threshold,
		MaxSigners:   cfg.MaxSigners,
		Participants: cfg.Participants,
		MyIndex:      cfg.MyIndex,
		MySecretKey:  cfg.MySecretKey,
		Group:        cfg.Group,
	})
	if err != nil {
		return nil, err
	}
	return &Participant{frost: f, dkgSession: sess}, nil
}

func newFROST(cfg Config) (*frost.FROST, error) {
	if cfg.Hasher != nil {
		return frost.NewWithHasher(cfg.Group, cfg.Threshold, cfg.MaxSigners, cfg.Hasher)
	}
	return frost.New(cfg.Group, cfg.Threshold, cfg.MaxSigners)
}

// FROST returns the underlying FROST instance, for callers that need to
// build SigningSessions directly (e.g. after restoring from storage
// without going through a fresh Config).
func (p *Participant) FROST() *frost.FROST { return p.frost }

// KeyPackage returns this participant's long-lived key material, or nil
// if the DKG ceremony has not yet finished.
func (p *Participant) KeyPackage() *dkg.KeyPackage { return p.keyPackage }

// SetKeyPackage restores a previously finalized key package, e.g. when
// loading a participant's state from persistent storage rather than
// running a fresh DKG ceremony.
func (p *Participant) SetKeyPackage(kp *dkg.KeyPackage) { p.keyPackage = kp }

// GenerateRound1 drives this participant's DKG round 1: it samples a
// secret polynomial and returns the public package to broadcast.
func (p *Participant) GenerateRound1(rng io.Reader) (*dkg.Round1Package, error) {
	return p.dkgSession.Round1(rng)
}

// IngestRound1 records a peer's round 1 package.
func (p *Participant) IngestRound1(pkg *dkg.Round1Package) error {
	return p.dkgSession.IngestRound1(pkg)
}

// GenerateRound2 drives this participant's DKG round 2, once every
// peer's round 1 package has been ingested. It returns one sealed
// package per recipient; route each to its ToIndex.
func (p *Participant) GenerateRound2() ([]*dkg.Round2Package, error) {
	return p.dkgSession.Round2()
}

// IngestRound2 decrypts and VSS-verifies a peer's round 2 share.
func (p *Participant) IngestRound2(pkg *dkg.Round2Package) error {
	return p.dkgSession.IngestRound2(pkg)
}

// Finalize completes the DKG ceremony and stores the resulting key
// package on the Participant for later signing sessions.
func (p *Participant) Finalize() (*dkg.KeyPackage, error) {
	kp, err := p.dkgSession.Finalize()
	if err != nil {
		return nil, err
	}
	p.keyPackage = kp
	return kp, nil
}

// NewSigningSession starts a FROST signing ceremony over message, using
// this participant's finalized key package. It requires DKG (or
// SetKeyPackage) to have already populated KeyPackage.
func (p *Participant) NewSigningSession(signerIndices []dkg.ParticipantIndex, message []byte) (*frost.SigningSession, error) {
	if p.keyPackage == nil {
		return nil, errors.New("session: no key package — run the DKG ceremony or call SetKeyPackage first")
	}
	return p.frost.NewSigningSession(p.keyPackage, signerIndices, message)
}
