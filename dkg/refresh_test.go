package dkg

import (
	"crypto/rand"
	"sort"
	"testing"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/group"
)

// setupGroup builds total sorted identities and a fixed session id,
// mirroring session_test.go's runCeremony fixture.
func setupGroup(t *testing.T, total int) ([]group.Scalar, []group.Point, [32]byte) {
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

	secrets := make([]group.Scalar, total)
	pubs := make([]group.Point, total)
	for i, id := range ids {
		secrets[i] = id.secret
		pubs[i] = id.pub
	}

	var sessionID [32]byte
	copy(sessionID[:], []byte("dkg-refresh-test-fixed-session!"))
	return secrets, pubs, sessionID
}

func runDKG(t *testing.T, threshold, total int) []*KeyPackage {
	t.Helper()
	g := curve.Secp256k1{}
	secrets, pubs, sessionID := setupGroup(t, total)

	sessions := make([]*Session, total)
	for i := 0; i < total; i++ {
		s, err := NewSession(Config{
			Group:        g,
			Threshold:    threshold,
			MaxSigners:   total,
			Participants: pubs,
			MyIndex:      ParticipantIndex(i + 1),
			MySecretKey:  secrets[i],
			SessionID:    sessionID,
		})
		if err != nil {
			t.Fatalf("new session %d: %v", i, err)
		}
		sessions[i] = s
	}

	round1 := make([]*Round1Package, total)
	for i, s := range sessions {
		pkg, err := s.Round1(rand.Reader)
		if err != nil {
			t.Fatalf("round1 %d: %v", i, err)
		}
		round1[i] = pkg
	}
	for i, s := range sessions {
		for j, pkg := range round1 {
			if i == j {
				continue
			}
			if err := s.IngestRound1(pkg); err != nil {
				t.Fatalf("ingest_round1 %d<-%d: %v", i, j, err)
			}
		}
	}

	round2 := make([][]*Round2Package, total)
	for i, s := range sessions {
		pkgs, err := s.Round2()
		if err != nil {
			t.Fatalf("round2 %d: %v", i, err)
		}
		round2[i] = pkgs
	}
	for i, s := range sessions {
		for j := range sessions {
			if i == j {
				continue
			}
			for _, pkg := range round2[j] {
				if pkg.ToIndex == ParticipantIndex(i+1) {
					if err := s.IngestRound2(pkg); err != nil {
						t.Fatalf("ingest_round2 %d<-%d: %v", i, j, err)
					}
				}
			}
		}
	}

	keys := make([]*KeyPackage, total)
	for i, s := range sessions {
		kp, err := s.Finalize()
		if err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
		keys[i] = kp
	}
	return keys
}

func TestRefreshSessionPreservesGroupKeyAndShares(t *testing.T) {
	const threshold, total = 2, 3
	g := curve.Secp256k1{}

	oldKeys := runDKG(t, threshold, total)
	groupPubkey := oldKeys[0].GroupPubkey
	for _, kp := range oldKeys[1:] {
		if !kp.GroupPubkey.Equal(groupPubkey) {
			t.Fatal("expected all participants to agree on the group pubkey after DKG")
		}
	}

	secrets, refreshPubs, refreshSessionID := setupGroup(t, total)
	refreshSessions := make([]*RefreshSession, total)
	for i := 0; i < total; i++ {
		rs, err := NewRefreshSession(Config{
			Group:        g,
			Threshold:    threshold,
			MaxSigners:   total,
			Participants: refreshPubs,
			MyIndex:      ParticipantIndex(i + 1),
			MySecretKey:  secrets[i],
			SessionID:    refreshSessionID,
		})
		if err != nil {
			t.Fatalf("new refresh session %d: %v", i, err)
		}
		refreshSessions[i] = rs
	}

	round1 := make([]*Round1Package, total)
	for i, rs := range refreshSessions {
		pkg, err := rs.Round1(rand.Reader)
		if err != nil {
			t.Fatalf("refresh round1 %d: %v", i, err)
		}
		round1[i] = pkg
	}
	for i, rs := range refreshSessions {
		for j, pkg := range round1 {
			if i == j {
				continue
			}
			if err := rs.IngestRound1(pkg); err != nil {
				t.Fatalf("refresh ingest_round1 %d<-%d: %v", i, j, err)
			}
		}
	}

	round2 := make([][]*Round2Package, total)
	for i, rs := range refreshSessions {
		pkgs, err := rs.Round2()
		if err != nil {
			t.Fatalf("refresh round2 %d: %v", i, err)
		}
		round2[i] = pkgs
	}
	for i, rs := range refreshSessions {
		for j := range refreshSessions {
			if i == j {
				continue
			}
			for _, pkg := range round2[j] {
				if pkg.ToIndex == ParticipantIndex(i+1) {
					if err := rs.IngestRound2(pkg); err != nil {
						t.Fatalf("refresh ingest_round2 %d<-%d: %v", i, j, err)
					}
				}
			}
		}
	}

	newKeys := make([]*KeyPackage, total)
	for i, rs := range refreshSessions {
		nk, err := rs.Finalize(oldKeys[i])
		if err != nil {
			t.Fatalf("refresh finalize %d: %v", i, err)
		}
		newKeys[i] = nk
	}

	for i, nk := range newKeys {
		if !nk.GroupPubkey.Equal(groupPubkey) {
			t.Fatalf("participant %d: group pubkey changed across refresh", i)
		}
		myScalar := curve.ScalarFromUint64(g, uint64(nk.Index))
		lhs := g.NewPoint().ScalarMult(nk.Share, g.Generator())
		rhs := curve.EvalVSSCommitments(g, nk.VSSCommitments, myScalar)
		if !lhs.Equal(rhs) {
			t.Fatalf("participant %d: refreshed share fails VSS verification against new commitments", i)
		}
	}
}
