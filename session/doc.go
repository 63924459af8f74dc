// Package session provides a high-level API for threshold key generation
// and FROST signing ceremonies. It wraps the low-level [dkg] and [frost]
// packages behind a Participant type that tracks a ceremony's state for
// application developers who don't want to drive the state machines by
// hand.
//
// # DKG Ceremony
//
// Every participant runs the same code independently:
//
//	p, err := session.NewParticipant(session.Config{
//		Group: curve.Secp256k1{}, Threshold: 2, MaxSigners: 3,
//		MyIndex: 1, MySecretKey: mySecret, Participants: sortedPubkeys,
//		SessionID: sessionID,
//	})
//
//	r1, err := p.GenerateRound1(rand.Reader)
//	// broadcast r1 to all participants; ingest everyone else's with IngestRound1
//
//	r2, err := p.GenerateRound2()
//	// r2 is addressed per-recipient; route each package with IngestRound2
//
//	keyPackage, err := p.Finalize()
//	// store keyPackage securely — it is this participant's long-term share
//
// # Signing
//
// Once a Participant has a KeyPackage (freshly finalized, or restored with
// SetKeyPackage), it can start signing sessions over the [frost] package's
// single-use nonce machinery:
//
//	sigSess, err := p.NewSigningSession(signerIndices, message)
//	commitment, err := sigSess.Commit(rand.Reader)
//	// broadcast commitment, ingest everyone else's with sigSess.IngestNonce
//
//	share, err := sigSess.Sign()
//	// broadcast share, ingest everyone else's with sigSess.IngestPartial
//
//	sig, err := sigSess.Aggregate()
//
// # Transport Agnostic
//
// This package does not handle network communication. Message routing
// between participants is left to the caller — see the transport package
// for one concrete wire format.
package session
