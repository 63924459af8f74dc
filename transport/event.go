package transport

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/group"
)

// Event is a signed, timestamped piece of group content per spec.md
// §6. Id is the hex-encoded SHA-256 of the canonical serialization;
// Sig is a hex-encoded 64-byte Schnorr signature over the raw id
// bytes.
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int64      `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// canonicalBytes returns the bytes hashed to compute e.ID. It never
// reads e.ID or e.Sig, since both are derived from it.
func (e *Event) canonicalBytes() ([]byte, error) {
	return json.Marshal([]interface{}{0, e.Pubkey, e.CreatedAt, e.Kind, e.Tags, e.Content})
}

// ComputeID returns the hex-encoded SHA-256 of e's canonical
// serialization, independent of whatever is currently in e.ID.
func (e *Event) ComputeID() (string, error) {
	b, err := e.canonicalBytes()
	if err != nil {
		return "", fmt.Errorf("transport: canonicalize event: %w", err)
	}
	sum := sha256.Sum256(b)
	return curve.EncodeHex(sum[:]), nil
}

// Tag returns the value of the first tag named name, and whether it was
// present.
func (e *Event) Tag(name string) (string, bool) {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1], true
		}
	}
	return "", false
}

// TagValues returns every value carried under tags named name, in
// order.
func (e *Event) TagValues(name string) []string {
	var out []string
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			out = append(out, t[1])
		}
	}
	return out
}

// VerifyID reports whether e.ID matches the canonical hash of its
// other fields.
func (e *Event) VerifyID() (bool, error) {
	id, err := e.ComputeID()
	if err != nil {
		return false, err
	}
	return id == e.ID, nil
}

// Sign computes e.ID and e.Sig for a single (non-threshold) secp256k1
// keypair, using the same tagged-hash challenge VerifySignature checks
// against. It sets e.Pubkey from pub, recomputes e.ID from the other
// fields, and draws a fresh nonce for every call.
func Sign(secret group.Scalar, pub group.Point, e *Event) error {
	g := curve.Secp256k1{}
	e.Pubkey = curve.EncodeHex(pub.Bytes())

	id, err := e.ComputeID()
	if err != nil {
		return fmt.Errorf("transport: compute event id: %w", err)
	}
	e.ID = id
	idBytes, err := curve.DecodeHex(id)
	if err != nil {
		return fmt.Errorf("transport: decode computed id: %w", err)
	}

	k, err := g.RandomScalar(rand.Reader)
	if err != nil {
		return fmt.Errorf("transport: draw nonce: %w", err)
	}
	R := g.NewPoint().ScalarMult(k, g.Generator())

	c := curve.TaggedHashToScalar("relay/event-sig", R.Bytes(), pub.Bytes(), idBytes)
	z := g.NewScalar().Add(k, g.NewScalar().Mul(c, secret))

	sig := make([]byte, 64)
	rBytes := R.Bytes()
	copy(sig[:32], rBytes[1:])
	copy(sig[32:], z.Bytes())
	e.Sig = curve.EncodeHex(sig)
	return nil
}

// VerifySignature reports false when e.ID does not match the canonical
// hash of the event's other fields, and otherwise checks e.Sig against
// e.Pubkey over e.ID using the secp256k1 Schnorr equation, the same z*G == R + c*Y check the FROST
// engine uses for its aggregated signatures (§4.C), applied here to a
// single (non-threshold) keypair. Events are always secp256k1; the
// bjj backend exists only to exercise the DKG/FROST state machines
// against a second curve in tests.
func VerifySignature(e *Event) (bool, error) {
	if ok, err := e.VerifyID(); err != nil || !ok {
		return false, err
	}
	g := curve.Secp256k1{}
	idBytes, err := curve.DecodeHex(e.ID)
	if err != nil {
		return false, fmt.Errorf("transport: decode event id: %w", err)
	}
	pubBytes, err := curve.DecodeHex(e.Pubkey)
	if err != nil {
		return false, fmt.Errorf("transport: decode pubkey: %w", err)
	}
	sigBytes, err := curve.DecodeHex(e.Sig)
	if err != nil {
		return false, fmt.Errorf("transport: decode signature: %w", err)
	}
	if len(sigBytes) != 64 {
		return false, fmt.Errorf("transport: signature must be 64 bytes, got %d", len(sigBytes))
	}

	Y, err := g.NewPoint().SetBytes(pubBytes)
	if err != nil {
		return false, fmt.Errorf("transport: decode pubkey point: %w", err)
	}

	// Sign drops R's parity byte; a compressed point needs it back to
	// round-trip through SetBytes, and the challenge hash covers the full
	// compressed R, so both parities are tried.
	rX := sigBytes[:32]
	z, err := g.NewScalar().SetBytes(sigBytes[32:])
	if err != nil {
		return false, fmt.Errorf("transport: decode signature scalar: %w", err)
	}

	for _, prefix := range []byte{0x02, 0x03} {
		compressed := append([]byte{prefix}, rX...)
		R, err := g.NewPoint().SetBytes(compressed)
		if err != nil {
			continue
		}
		c := curve.TaggedHashToScalar("relay/event-sig", R.Bytes(), Y.Bytes(), idBytes)
		lhs := g.NewPoint().ScalarMult(z, g.Generator())
		cY := g.NewPoint().ScalarMult(c, Y)
		rhs := g.NewPoint().Add(R, cY)
		if lhs.Equal(rhs) {
			return true, nil
		}
	}
	return false, nil
}
