package frost

import (
	"crypto/rand"
	"testing"

	"github.com/kgroups/rootkey/bjj"
	"github.com/kgroups/rootkey/dkg"
)

func TestSignWithSharesDisabledByDefault(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 2, 3
	f, err := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)

	_, err = SignWithShares(f, keyPackages[:threshold], []byte("msg"), rand.Reader, false)
	if err == nil {
		t.Fatal("expected SignWithShares to refuse without allowDevelopment")
	}
}

func TestSignWithSharesQuorum(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 2, 3
	f, err := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)
	message := []byte("trusted-dealer signing test")

	sig, err := SignWithShares(f, keyPackages[:threshold], message, rand.Reader, true)
	if err != nil {
		t.Fatalf("SignWithShares: %v", err)
	}
	if !f.Verify(message, sig, keyPackages[0].GroupPubkey) {
		t.Fatal("aggregated signature failed verification")
	}
}

// TestSignWithSharesInsufficientSharesFails exercises spec.md §8
// scenario 2: signing with fewer than threshold key packages must fail
// rather than silently produce an invalid or partial signature.
func TestSignWithSharesInsufficientSharesFails(t *testing.T) {
	g := &bjj.BJJ{}
	threshold, total := 3, 4
	f, err := NewWithHasher(g, threshold, total, &SHA256Hasher{})
	if err != nil {
		t.Fatal(err)
	}
	keyPackages := runDKG(t, g, threshold, total)

	_, err = SignWithShares(f, keyPackages[:threshold-1], []byte("msg"), rand.Reader, true)
	if err == nil {
		t.Fatal("expected SignWithShares to fail with fewer than threshold key packages")
	}
}
