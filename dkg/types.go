package dkg

import (
	"errors"
	"fmt"

	"github.com/kgroups/rootkey/group"
)

// ParticipantIndex identifies a DKG participant. Valid indices are
// [1, maxSigners]; index 0 is reserved and never assigned.
type ParticipantIndex uint32

// State is a DKGSession's position in the protocol state machine.
type State int

const (
	StateInitialized State = iota
	StateRound1Complete
	StateRound2Complete
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRound1Complete:
		return "round1_complete"
	case StateRound2Complete:
		return "round2_complete"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config configures a DKG session for one participant.
type Config struct {
	// SessionID is a 32-byte random session identifier, bound as AEAD
	// associated data on every Round 2 payload to prevent cross-session
	// replay.
	SessionID [32]byte

	// Threshold is t, the minimum number of shares required to sign.
	Threshold int

	// MaxSigners is n, the total number of participants.
	MaxSigners int

	// Participants is the ordered list of participant public keys,
	// sorted lexicographically by their compressed encoding. Position
	// i (0-based) corresponds to ParticipantIndex(i+1).
	Participants []group.Point

	// MyIndex is this participant's 1-based index into Participants.
	MyIndex ParticipantIndex

	// MySecretKey is this participant's long-term secret key, used to
	// derive ECDH conversation keys for Round 2 share encryption. It is
	// unrelated to the DKG polynomial secret.
	MySecretKey group.Scalar

	// Group is the cryptographic group backing the session (normally
	// curve.Secp256k1{}; an alternate curve may be substituted to
	// exercise the state machine generically).
	Group group.Group
}

func (c *Config) validate() error {
	if c.Threshold < 2 {
		return errors.New("dkg: threshold must be at least 2")
	}
	if c.Threshold > c.MaxSigners {
		return errors.New("dkg: threshold cannot exceed maxSigners")
	}
	if len(c.Participants) != c.MaxSigners {
		return fmt.Errorf("dkg: expected %d participants, got %d", c.MaxSigners, len(c.Participants))
	}
	if c.MyIndex < 1 || int(c.MyIndex) > c.MaxSigners {
		return fmt.Errorf("dkg: myIndex %d out of range [1,%d]", c.MyIndex, c.MaxSigners)
	}
	if !sortedByCompressedBytes(c.Participants) {
		return errors.New("dkg: participants must be sorted lexicographically by pubkey")
	}
	return nil
}

func sortedByCompressedBytes(points []group.Point) bool {
	for i := 1; i < len(points); i++ {
		if compareBytes(points[i-1].Bytes(), points[i].Bytes()) > 0 {
			return false
		}
	}
	return true
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// Round1Package is the public data a participant broadcasts in round 1:
// Pedersen commitments to its secret polynomial's coefficients.
type Round1Package struct {
	Index       ParticipantIndex
	Commitments []group.Point // len == Threshold
}

// Round2Package is the payload sent from one participant to another in
// round 2: Ciphertext carries the AEAD-sealed evaluation of the sender's
// polynomial at the recipient's index. Round2 keeps the sender's own
// evaluation inside the session and builds no package for it; Share is
// not set by Session or RefreshSession.
type Round2Package struct {
	FromIndex  ParticipantIndex
	ToIndex    ParticipantIndex
	Ciphertext []byte
	Share      group.Scalar
}

// KeyPackage is a participant's long-lived output of a completed DKG (or
// refresh): their share of the group secret plus the public material
// needed to participate in signing.
type KeyPackage struct {
	Index          ParticipantIndex
	Share          group.Scalar
	GroupPubkey    group.Point
	VSSCommitments []group.Point // aggregated public polynomial, len == Threshold
	Threshold      int
	MaxSigners     int
}
