// Package dkg implements Pedersen distributed key generation with
// verifiable secret sharing (Feldman VSS) for the FROST-style threshold
// group this module roots a community's identity in.
//
// Each participant runs an identical state machine:
//
//	s, _ := NewSession(cfg)
//	r1, _ := s.Round1(rand.Reader)
//	// broadcast r1 to every participant, then for each received package:
//	s.IngestRound1(peerPkg)
//	// once round1Complete:
//	out, _ := s.Round2()
//	// send out[j] to participant j over the authenticated channel, then:
//	s.IngestRound2(peerPkg)
//	// once round2Complete:
//	kp, _ := s.Finalize()
//
// No participant ever holds the full group secret: each only learns its
// own share s_j = Σ_i f_i(j) and the public group key Y = Σ_i A_{i,0}.
//
// Round 2 shares are confidential: every payload a participant sends to
// another is wrapped in an AEAD envelope keyed by an ECDH conversation
// key, with the session id and round number bound as associated data
// (see encrypt.go). This is a hardening requirement the underlying
// Feldman VSS construction does not itself provide.
//
// A session that detects a verification failure — a bad VSS opening, a
// forged ciphertext, a malformed commitment list — transitions to the
// terminal failed state and must be discarded; it never returns a
// partial KeyPackage.
package dkg
