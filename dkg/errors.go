package dkg

import "fmt"

// Kind enumerates the distinct DKG failure reasons spec.md §7 requires,
// so a caller can tell a bad commitment length from a forged ciphertext
// without string-matching.
type Kind string

const (
	KindBadCommitmentLength Kind = "bad_commitment_length"
	KindVSSMismatch         Kind = "vss_mismatch"
	KindDecryptionFailure   Kind = "decryption_failure"
	KindDuplicateIndex      Kind = "duplicate_index"
	KindOutOfRange          Kind = "out_of_range"
	KindOwnIndex            Kind = "own_index"
	KindWrongRecipient      Kind = "wrong_recipient"
	KindWrongState          Kind = "wrong_state"
)

// Error is a DKG failure attributed to a specific peer, rendered as
// "dkg:<peer_idx>:<kind>" per the error-kind taxonomy in spec.md §7.
type Error struct {
	Peer ParticipantIndex
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dkg:%d:%s: %v", e.Peer, e.Kind, e.Err)
	}
	return fmt.Sprintf("dkg:%d:%s", e.Peer, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func blame(peer ParticipantIndex, kind Kind, err error) error {
	return &Error{Peer: peer, Kind: kind, Err: err}
}
