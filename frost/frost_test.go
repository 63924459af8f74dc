package frost

import (
	"crypto/rand"
	"fmt"
	"sort"
	"testing"

	"github.com/kgroups/rootkey/bjj"
	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/group"
)

// testIdentity is one participant's long-term identity keypair, used
// only to derive DKG round-2 conversation keys — unrelated to the
// polynomial secret a DKG session produces.
type testIdentity struct {
	secret group.Scalar
	pub    group.Point
}

// runDKG drives n in-process dkg.Sessions to completion over group g
// and returns their KeyPackages in ascending index order. It exists so
// every signing test in this file starts from a real, freshly generated
// threshold key rather than a hand-rolled stand-in.
func runDKG(t *testing.T, g group.Group, threshold, n int) []*dkg.KeyPackage {
	t.Helper()

	identities := make([]testIdentity, n)
	for i := 0; i < n; i++ {
		s, err := g.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("identity keygen %d: %v", i, err)
		}
		identities[i] = testIdentity{secret: s, pub: g.NewPoint().ScalarMult(s, g.Generator())}
	}
	sort.Slice(identities, func(i, j int) bool {
		a, b := identities[i].pub.Bytes(), identities[j].pub.Bytes()
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	pubs := make([]group.Point, n)
	for i, id := range identities {
		pubs[i] = id.pub
	}

	var sessionID [32]byte
	copy(sessionID[:], []byte("frost-package-test-session-fixd"))

	sessions := make([]*dkg.Session, n)
	for i := range identities {
		cfg := dkg.Config{
			SessionID:   sessionID,
			Threshold:   threshold,
			MaxSigners:  n,
			Participants: pubs,
			MyIndex:     dkg.ParticipantIndex(i + 1),
			MySecretKey: identities[i].secret,
			Group:       g,
		}
		sess, err := dkg.NewSession(cfg)
		if err != nil {
			t.Fatalf("new session %d: %v", i, err)
		}
		sessions[i] = sess
	}

	round1 := make([]*dkg.Round1Package, n)
	for i, sess := range sessions {
		pkg, err := sess.Round1(rand.Reader)
		if err != nil {
			t.Fatalf("round1 %d: %v", i, err)
		}
		round1[i] = pkg
	}
	for i, sess := range sessions {
		for j, pkg := range round1 {
			if i == j {
				continue
			}
			if err := sess.IngestRound1(pkg); err != nil {
				t.Fatalf("ingest_round1 %d<-%d: %v", i, j, err)
			}
		}
	}

	round2 := make([][]*dkg.Round2Package, n)
	for i, sess := range sessions {
		pkgs, err := sess.Round2()
		if err != nil {
			t.Fatalf("round2 %d: %v", i, err)
		}
		round2[i] = pkgs
	}
	for i, sess := range sessions {
		for j := range sessions {
			if i == j {
				continue
			}
			for _, pkg := range round2[j] {
				if pkg.ToIndex == dkg.ParticipantIndex(i+1) {
					if err := sess.IngestRound2(pkg); err != nil {
						t.Fatalf("ingest_round2 %d<-%d: %v", i, j, err)
					}
				}
			}
		}
	}

	keyPackages := make([]*dkg.KeyPackage, n)
	for i, sess := range sessions {
		kp, err := sess.Finalize()
		if err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
		keyPackages[i] = kp
	}
	return keyPackages
}

// runSigningRound drives a SigningSession to completion for every
// KeyPackage in signers, returning the signature every session agreed
// on (they must all agree, since Aggregate re-verifies).
func runSigningRound(t *testing.T, f *FROST, signers []*dkg.KeyPackage, message []byte) *Signature {
	t.Helper()

	signerIndices := make([]dkg.ParticipantIndex, len(signers))
	for i, kp := range signers {
		signerIndices[i] = kp.Index
	}

	sessions := make([]*SigningSession, len(signers))
	commitments := make([]*SigningCommitment, len(signers))
	for i, kp := range signers {
		sess, err := f.NewSigningSession(kp, signerIndices, message)
		if err != nil {
			t.Fatalf("new signing session %d: %v", kp.Index, err)
		}
		c, err := sess.Commit(rand.Reader)
		if err != nil {
			t.Fatalf("commit %d: %v", kp.Index, err)
		}
		sessions[i] = sess
		commitments[i] = c
	}
	for _, sess := range sessions {
		for _, c := range commitments {
			if err := sess.IngestNonce(c); err != nil {
				t.Fatalf("ingest_nonce: %v", err)
			}
		}
	}

	shares := make([]*SignatureShare, len(sessions))
	for i, sess := range sessions {
		share, err := sess.Sign()
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		shares[i] = share
	}

	var final *Signature
	for _, sess := range sessions {
		for _, share := range shares {
			if err := sess.IngestPartial(share); err != nil {
				t.Fatalf("ingest_partial: %v", err)
			}
		}
		sig, err := sess.Aggregate()
		if err != nil {
			t.Fatalf("aggregate: %v", err)
		}
		final = sig
	}
	return final
}

func TestDKGAndSign(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 2, 3

	f, err := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("DKG", func(t *testing.T) {
		keyPackages := runDKG(t, g, threshold, total)
		for i := 1; i < total; i++ {
			if !keyPackages[i].GroupPubkey.Equal(keyPackages[0].GroupPubkey) {
				t.Error("participants have different group keys")
			}
		}

		t.Run("Sign", func(t *testing.T) {
			message := []byte("hello FROST")
			sig := runSigningRound(t, f, keyPackages[:threshold], message)

			if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
				t.Error("signature verification failed")
			}
			if f.Verify([]byte("wrong message"), sig, keyPackages[0].GroupPubkey) {
				t.Error("signature should not verify with wrong message")
			}
		})
	})
}

func TestSigningWithDifferentSignerSubsets(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 2, 4

	f, err := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)
	message := []byte("test message")

	subsets := [][]int{
		{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3},
		{0, 1, 2}, {0, 1, 2, 3},
	}

	for _, subset := range subsets {
		t.Run(subsetName(subset), func(t *testing.T) {
			signers := make([]*dkg.KeyPackage, len(subset))
			for i, idx := range subset {
				signers[i] = keyPackages[idx]
			}
			sig := runSigningRound(t, f, signers, message)
			if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
				t.Error("signature verification failed")
			}
		})
	}
}

func subsetName(subset []int) string {
	name := "signers"
	for _, idx := range subset {
		name += fmt.Sprintf("_%d", idx+1)
	}
	return name
}

func TestSigningWithDifferentThresholds(t *testing.T) {
	g := &bjj.BJJ{}

	configs := []struct {
		threshold int
		total     int
	}{
		{2, 3},
		{2, 5},
		{3, 5},
		{3, 7},
	}

	for _, cfg := range configs {
		name := fmt.Sprintf("%d_of_%d", cfg.threshold, cfg.total)
		t.Run(name, func(t *testing.T) {
			f, err := NewWithHasher(g, cfg.threshold, cfg.total, &SHA256Hasher{})
			if err != nil {
				t.Fatal(err)
			}
			keyPackages := runDKG(t, g, cfg.threshold, cfg.total)

			message := []byte("threshold signing test")
			sig := runSigningRound(t, f, keyPackages[:cfg.threshold], message)

			if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
				t.Error("signature verification failed")
			}
		})
	}
}

func TestSignatureVerificationFailures(t *testing.T) {
	g := &bjj.BJJ{}
	f, _ := NewWithHasher(g, 2, 3, &SHA256Hasher{})

	keyPackages := runDKG(t, g, 2, 3)
	message := []byte("original message")
	signers := keyPackages[:2]

	sig := runSigningRound(t, f, signers, message)
	if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
		t.Fatal("valid signature should verify")
	}

	t.Run("WrongMessage", func(t *testing.T) {
		if f.Verify([]byte("wrong message"), sig, keyPackages[0].GroupPubkey) {
			t.Error("signature should not verify with wrong message")
		}
	})

	t.Run("WrongGroupKey", func(t *testing.T) {
		otherKeyPackages := runDKG(t, g, 2, 3)
		if f.Verify(message, sig, otherKeyPackages[0].GroupPubkey) {
			t.Error("signature should not verify with wrong group key")
		}
	})

	t.Run("TamperedSignatureR", func(t *testing.T) {
		tamperedR := g.NewPoint().Add(sig.R, g.Generator())
		tamperedSig := &Signature{R: tamperedR, Z: sig.Z}
		if f.Verify(message, tamperedSig, keyPackages[0].GroupPubkey) {
			t.Error("signature should not verify with tampered R")
		}
	})

	t.Run("TamperedSignatureZ", func(t *testing.T) {
		one := g.NewScalar()
		one.SetBytes([]byte{1})
		tamperedZ := g.NewScalar().Add(sig.Z, one)
		tamperedSig := &Signature{R: sig.R, Z: tamperedZ}
		if f.Verify(message, tamperedSig, keyPackages[0].GroupPubkey) {
			t.Error("signature should not verify with tampered Z")
		}
	})

	t.Run("EmptyMessage", func(t *testing.T) {
		emptyMsg := []byte{}
		emptySig := runSigningRound(t, f, signers, emptyMsg)

		if !f.Verify(emptyMsg, emptySig, keyPackages[0].GroupPubkey) {
			t.Error("empty message signature should verify")
		}
		if f.Verify(emptyMsg, sig, keyPackages[0].GroupPubkey) {
			t.Error("original signature should not verify with empty message")
		}
	})
}

func TestThresholdValidation(t *testing.T) {
	g := &bjj.BJJ{}

	t.Run("ThresholdTooLow", func(t *testing.T) {
		_, err := New(g, 1, 3)
		if err == nil {
			t.Error("expected error for threshold < 2")
		}
	})

	t.Run("TotalLessThanThreshold", func(t *testing.T) {
		_, err := New(g, 3, 2)
		if err == nil {
			t.Error("expected error for total < threshold")
		}
	})
}

func TestBlake2bHasher(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 2, 3

	f, err := NewWithHasher(g, threshold, total, NewBlake2bHasher())
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)

	message := []byte("test message with blake2b")
	sig := runSigningRound(t, f, keyPackages[:threshold], message)

	if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
		t.Error("signature verification failed with Blake2b hasher")
	}
	if f.Verify([]byte("wrong message"), sig, keyPackages[0].GroupPubkey) {
		t.Error("signature should not verify with wrong message")
	}

	f2, _ := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if f2.Verify(message, sig, keyPackages[0].GroupPubkey) {
		t.Error("blake2b signature should not verify with sha256 hasher")
	}
}

func TestSelfVerificationCatchesBadShare(t *testing.T) {
	g := curve.Secp256k1{}
	threshold, total := 2, 3

	f, err := New(g, threshold, total)
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)
	message := []byte("tamper test")

	one := curve.ScalarFromUint64(g, 1)
	bad := *keyPackages[0]
	bad.Share = g.NewScalar().Add(bad.Share, one) // corrupt the share post-DKG

	signerIndices := []dkg.ParticipantIndex{bad.Index, keyPackages[1].Index}
	sess, err := f.NewSigningSession(&bad, signerIndices, message)
	if err != nil {
		t.Fatal(err)
	}
	myCommit, err := sess.Commit(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	other, err := f.NewSigningSession(keyPackages[1], signerIndices, message)
	if err != nil {
		t.Fatal(err)
	}
	otherCommit, err := other.Commit(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.IngestNonce(otherCommit); err != nil {
		t.Fatal(err)
	}
	if err := other.IngestNonce(myCommit); err != nil {
		t.Fatal(err)
	}

	if _, err := sess.Sign(); err == nil {
		t.Error("expected self-verification to reject a corrupted share")
	}
}

func TestCommitIsSingleUse(t *testing.T) {
	g := curve.Secp256k1{}
	f, err := New(g, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, 2, 3)
	signerIndices := []dkg.ParticipantIndex{keyPackages[0].Index, keyPackages[1].Index}

	sess, err := f.NewSigningSession(keyPackages[0], signerIndices, []byte("msg"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Commit(rand.Reader); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Commit(rand.Reader); err == nil {
		t.Error("expected second Commit on the same session to fail")
	}
}
