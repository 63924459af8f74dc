// Package frost implements the FROST (Flexible Round-Optimized Schnorr Threshold)
// signature scheme over an arbitrary elliptic curve group.
//
// FROST is a threshold signature scheme that allows t-of-n participants to
// collaboratively generate a Schnorr signature without any single participant
// knowing the full private key. Key shares come from the dkg package: each
// participant's dkg.KeyPackage carries its share, the group public key and
// the aggregated VSS commitments. This package covers signing and
// verification only.
//
// # Threshold Signing
//
// Each signer drives its own [SigningSession], bound to one message and one
// signer set:
//
//  1. [FROST.NewSigningSession] checks that the signer set has at least
//     threshold members and contains this participant.
//  2. [SigningSession.Commit] draws fresh nonces and returns the commitment
//     to broadcast; peers' commitments are recorded with
//     [SigningSession.IngestNonce].
//  3. [SigningSession.Sign] computes and self-verifies this signer's share;
//     peers' shares are checked and recorded with [SigningSession.IngestPartial].
//  4. [SigningSession.Aggregate] combines all shares and verifies the result.
//     Anyone can verify the signature using [FROST.Verify].
//
// # Example
//
// Signing with 2 of the 3 key packages a dkg ceremony produced:
//
//	f, _ := frost.New(curve.Secp256k1{}, 2, 3)
//	signers := []dkg.ParticipantIndex{1, 2}
//	message := []byte("hello")
//
//	s1, _ := f.NewSigningSession(keyPackages[0], signers, message)
//	s2, _ := f.NewSigningSession(keyPackages[1], signers, message)
//	c1, _ := s1.Commit(rand.Reader)
//	c2, _ := s2.Commit(rand.Reader)
//	s1.IngestNonce(c2)
//	s2.IngestNonce(c1)
//
//	s1.Sign()
//	z2, _ := s2.Sign()
//	s1.IngestPartial(z2)
//
//	sig, _ := s1.Aggregate()
//	valid := f.Verify(message, sig, keyPackages[0].GroupPubkey)
//
// [SignWithShares] signs in one call with t key packages held by one
// process; it returns an error unless its allowDevelopment argument is true.
//
// # Security Considerations
//
// The scheme provides security against an adversary controlling up to t-1
// participants during signing.
//
// Nonces drawn by [SigningSession.Commit] are single-use: Sign clears them,
// a session accepts only one Commit, and each message needs a new session.
package frost
