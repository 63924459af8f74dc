package session

import (
	"crypto/rand"
	"fmt"
	"sort"
	"testing"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/frost"
	"github.com/kgroups/rootkey/group"
)

// runCeremony drives n Participants through a full DKG ceremony over
// secp256k1 and returns them, each holding a finalized KeyPackage.
func runCeremony(t *testing.T, threshold, total int) []*Participant {
	t.Helper()
	g := curve.Secp256k1{}

	type identity struct {
		secret group.Scalar
		pub    group.Point
	}
	ids := make([]identity, total)
	for i := 0; i < total; i++ {
		s, err := g.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = identity{secret: s, pub: g.NewPoint().ScalarMult(s, g.Generator())}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i].pub.Bytes(), ids[j].pub.Bytes()
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	pubs := make([]group.Point, total)
	for i, id := range ids {
		pubs[i] = id.pub
	}

	var sessionID [32]byte
	copy(sessionID[:], []byte("session-package-test-fixed-id!!"))

	participants := make([]*Participant, total)
	for i := range ids {
		p, err := NewParticipant(Config{
			Group:        g,
			Threshold:    threshold,
			MaxSigners:   total,
			Participants: pubs,
			MyIndex:      dkg.ParticipantIndex(i + 1),
			MySecretKey:  ids[i].secret,
			SessionID:    sessionID,
		})
		if err != nil {
			t.Fatalf("new participant %d: %v", i, err)
		}
		participants[i] = p
	}

	round1 := make([]*dkg.Round1Package, total)
	for i, p := range participants {
		pkg, err := p.GenerateRound1(rand.Reader)
		if err != nil {
			t.Fatalf("round1 %d: %v", i, err)
		}
		round1[i] = pkg
	}
	for i, p := range participants {
		for j, pkg := range round1 {
			if i == j {
				continue
			}
			if err := p.IngestRound1(pkg); err != nil {
				t.Fatalf("ingest_round1 %d<-%d: %v", i, j, err)
			}
		}
	}

	round2 := make([][]*dkg.Round2Package, total)
	for i, p := range participants {
		pkgs, err := p.GenerateRound2()
		if err != nil {
			t.Fatalf("round2 %d: %v", i, err)
		}
		round2[i] = pkgs
	}
	for i, p := range participants {
		for j := range participants {
			if i == j {
				continue
			}
			for _, pkg := range round2[j] {
				if pkg.ToIndex == dkg.ParticipantIndex(i+1) {
					if err := p.IngestRound2(pkg); err != nil {
						t.Fatalf("ingest_round2 %d<-%d: %v", i, j, err)
					}
				}
			}
		}
	}

	for i, p := range participants {
		if _, err := p.Finalize(); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}
	return participants
}

// runSigningCeremony runs a full signing round across the given subset
// of already-finalized participants and returns the aggregated
// signature, which every session independently verifies before
// returning.
func runSigningCeremony(t *testing.T, participants []*Participant, subset []int, message []byte) *frost.Signature {
	t.Helper()

	signers := make([]*Participant, len(subset))
	for i, idx := range subset {
		signers[i] = participants[idx]
	}
	signerIndices := make([]dkg.ParticipantIndex, len(signers))
	for i, p := range signers {
		signerIndices[i] = p.KeyPackage().Index
	}

	sessions := make([]*frost.SigningSession, len(signers))
	commitments := make([]*frost.SigningCommitment, len(signers))
	for i, p := range signers {
		sess, err := p.NewSigningSession(signerIndices, message)
		if err != nil {
			t.Fatalf("new signing session: %v", err)
		}
		c, err := sess.Commit(rand.Reader)
		if err != nil {
			t.Fatalf("commit: %v", err)
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

	shares := make([]*frost.SignatureShare, len(sessions))
	for i, sess := range sessions {
		share, err := sess.Sign()
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		shares[i] = share
	}

	var final *frost.Signature
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

func TestParticipantDKGAndSign(t *testing.T) {
	threshold, total := 2, 3
	participants := runCeremony(t, threshold, total)

	for i := 1; i < total; i++ {
		if !participants[i].KeyPackage().GroupPubkey.Equal(participants[0].KeyPackage().GroupPubkey) {
			t.Error("participants have different group keys")
		}
	}

	message := []byte("hello session API")
	sig := runSigningCeremony(t, participants, []int{0, 1}, message)

	f := participants[0].FROST()
	groupPubkey := participants[0].KeyPackage().GroupPubkey
	if !f.Verify(message, sig, groupPubkey) {
		t.Error("signature verification failed")
	}
	if f.Verify([]byte("wrong message"), sig, groupPubkey) {
		t.Error("signature should not verify with wrong message")
	}
}

func TestSigningSessionWithoutDKG(t *testing.T) {
	participants := buildParticipants(t, 2, 2)

	_, err := participants[0].NewSigningSession([]dkg.ParticipantIndex{1, 2}, []byte("test"))
	if err == nil {
		t.Error("should fail to create signing session without a finalized key package")
	}
}

// buildParticipants constructs participants without running any DKG
// round — used by tests that only need to exercise the early
// validation path.
func buildParticipants(t *testing.T, threshold, total int) []*Participant {
	t.Helper()
	g := curve.Secp256k1{}

	pubs := make([]group.Point, total)
	secrets := make([]group.Scalar, total)
	for i := 0; i < total; i++ {
		s, err := g.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		secrets[i] = s
		pubs[i] = g.NewPoint().ScalarMult(s, g.Generator())
	}
	sort.Slice(pubs, func(i, j int) bool {
		a, b := pubs[i].Bytes(), pubs[j].Bytes()
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	var sessionID [32]byte
	participants := make([]*Participant, total)
	for i := 0; i < total; i++ {
		p, err := NewParticipant(Config{
			Group: g, Threshold: threshold, MaxSigners: total,
			Participants: pubs, MyIndex: dkg.ParticipantIndex(i + 1),
			MySecretKey: secrets[i], SessionID: sessionID,
		})
		if err != nil {
			t.Fatal(err)
		}
		participants[i] = p
	}
	return participants
}

func TestDuplicateRound1Generation(t *testing.T) {
	participants := buildParticipants(t, 2, 3)

	if _, err := participants[0].GenerateRound1(rand.Reader); err != nil {
		t.Fatal(err)
	}
	if _, err := participants[0].GenerateRound1(rand.Reader); err == nil {
		t.Error("should not allow generating round1 twice")
	}
}

func TestSigningWithDifferentSubsets(t *testing.T) {
	threshold, total := 2, 4
	participants := runCeremony(t, threshold, total)
	message := []byte("subset signing test")

	subsets := [][]int{
		{0, 1}, {0, 2}, {1, 3}, {0, 1, 2}, {0, 1, 2, 3},
	}

	groupPubkey := participants[0].KeyPackage().GroupPubkey
	for _, subset := range subsets {
		t.Run(fmt.Sprintf("subset_%v", subset), func(t *testing.T) {
			sig := runSigningCeremony(t, participants, subset, message)
			if !participants[subset[0]].FROST().Verify(message, sig, groupPubkey) {
				t.Errorf("subset %v: verification failed", subset)
			}
		})
	}
}

func TestSetKeyPackage(t *testing.T) {
	threshold, total := 2, 3
	participants := runCeremony(t, threshold, total)

	g := curve.Secp256k1{}
	secret, _ := g.RandomScalar(rand.Reader)
	pub := g.NewPoint().ScalarMult(secret, g.Generator())

	restored, err := NewParticipant(Config{
		Group: g, Threshold: threshold, MaxSigners: total,
		Participants: []group.Point{pub, pub, pub}, // placeholder config, unused post-restore
		MyIndex:      participants[0].KeyPackage().Index,
		MySecretKey:  secret,
	})
	if err != nil {
		t.Fatal(err)
	}
	restored.SetKeyPackage(participants[0].KeyPackage())

	message := []byte("restored participant test")
	signerIndices := []dkg.ParticipantIndex{participants[0].KeyPackage().Index, participants[1].KeyPackage().Index}

	sess0, err := restored.NewSigningSession(signerIndices, message)
	if err != nil {
		t.Fatal(err)
	}
	sess1, err := participants[1].NewSigningSession(signerIndices, message)
	if err != nil {
		t.Fatal(err)
	}

	c0, err := sess0.Commit(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := sess1.Commit(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess0.IngestNonce(c1); err != nil {
		t.Fatal(err)
	}
	if err := sess1.IngestNonce(c0); err != nil {
		t.Fatal(err)
	}

	share0, err := sess0.Sign()
	if err != nil {
		t.Fatal(err)
	}
	share1, err := sess1.Sign()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess0.IngestPartial(share1); err != nil {
		t.Fatal(err)
	}
	if err := sess1.IngestPartial(share0); err != nil {
		t.Fatal(err)
	}

	sig, err := sess0.Aggregate()
	if err != nil {
		t.Fatal(err)
	}

	if !restored.FROST().Verify(message, sig, participants[0].KeyPackage().GroupPubkey) {
		t.Error("signature verification failed")
	}
}
