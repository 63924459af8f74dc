package dkg

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kgroups/rootkey/group"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var cryptoRandReader = rand.Reader

// conversationKey derives a 32-byte symmetric key shared by mySecret and
// peerPubkey via ECDH followed by a tagged KDF, matching spec.md §9's
// "authenticated key derived from the pair (mySecret, peerPubkey)".
// Both sides compute the same key: ECDH is commutative in the exponent,
// so mySecret*peerPubkey == peerSecret*myPubkey.
func conversationKey(g group.Group, mySecret group.Scalar, peerPubkey group.Point) []byte {
	shared := g.NewPoint().ScalarMult(mySecret, peerPubkey)
	kdf := hkdf.New(sha256.New, shared.Bytes(), nil, []byte("rootkey/dkg/conversation-key"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		panic("dkg: hkdf read failed: " + err.Error()) // can only fail on a broken reader
	}
	return key
}

// associatedData binds the session id and round number to an AEAD seal,
// so a ciphertext from one session or round can never be replayed into
// another (spec.md §9's explicit hardening requirement over the source).
func associatedData(sessionID [32]byte, round uint32) []byte {
	ad := make([]byte, 36)
	copy(ad, sessionID[:])
	binary.BigEndian.PutUint32(ad[32:], round)
	return ad
}

// sealShare encrypts a polynomial evaluation for transport to its
// recipient, keyed by the sender/recipient conversation key.
func sealShare(g group.Group, mySecret group.Scalar, peerPubkey group.Point, sessionID [32]byte, round uint32, share group.Scalar) ([]byte, error) {
	aead, err := newAEAD(conversationKey(g, mySecret, peerPubkey))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(cryptoRandReader, nonce); err != nil {
		return nil, fmt.Errorf("dkg: nonce generation: %w", err)
	}
	ad := associatedData(sessionID, round)
	sealed := aead.Seal(nonce, nonce, share.Bytes(), ad)
	return sealed, nil
}

// openShare decrypts and validates a share sealed by sealShare. A
// one-byte substitution anywhere in the ciphertext is detected with
// probability 1 by the AEAD tag, satisfying the VSS-rejection property
// in spec.md §8 at the transport layer (Feldman VSS catches substitution
// of the cleartext share itself).
func openShare(g group.Group, mySecret group.Scalar, peerPubkey group.Point, sessionID [32]byte, round uint32, ciphertext []byte) (group.Scalar, error) {
	aead, err := newAEAD(conversationKey(g, mySecret, peerPubkey))
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("dkg: ciphertext too short")
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, associatedData(sessionID, round))
	if err != nil {
		return nil, fmt.Errorf("dkg: aead open failed: %w", err)
	}
	return g.NewScalar().SetBytes(plain)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}
