package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kgroups/rootkey/capability"
	"github.com/kgroups/rootkey/relay"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.db")
	s, err := Open(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := relay.NewGroupState("g1", "pub1", relay.VisibilityPublic, relay.AccessOpen)
	g.AddAdmin("pub1", relay.PermAddUser)
	g.AddMember("pub1")

	if err := s.SaveGroup(ctx, g); err != nil {
		t.Fatal(err)
	}

	groups, err := s.LoadGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].ID != "g1" || groups[0].GroupPubkey != "pub1" {
		t.Fatalf("unexpected group: %+v", groups[0])
	}
	if !groups[0].IsAdmin("pub1", relay.PermAddUser) {
		t.Fatal("expected admin permission to round-trip")
	}
	if !groups[0].IsMember("pub1") {
		t.Fatal("expected member to round-trip")
	}
}

func TestSaveAndLoadCapability(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &capability.Capability{
		EventID: "ev1",
		Type:    capability.Write,
		Holder:  "holder1",
		Issuer:  "issuer1",
	}
	if err := s.SaveCapability(ctx, c); err != nil {
		t.Fatal(err)
	}

	caps, err := s.LoadCapabilities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 || caps[0].EventID != "ev1" || caps[0].Type != capability.Write {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
}

func TestSaveAndLoadRevocation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveRevocation(ctx, "ev1"); err != nil {
		t.Fatal(err)
	}
	ids, err := s.LoadRevocations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "ev1" {
		t.Fatalf("unexpected revocations: %v", ids)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	s1, err := Open(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	g := relay.NewGroupState("g1", "pub1", relay.VisibilityPublic, relay.AccessOpen)
	if err := s1.SaveGroup(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	groups, err := s2.LoadGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].ID != "g1" {
		t.Fatalf("expected group to survive reopen, got %+v", groups)
	}
}
