package relay

import (
	"github.com/google/uuid"

	"github.com/kgroups/rootkey/transport"
)

// subscription is one client's active REQ: a subscription id plus the
// filters registered under it (OR'd together — an event matching any
// one filter is delivered once).
type subscription struct {
	id      string
	filters []transport.Filter
}

func (s *subscription) matches(e *transport.Event) bool {
	for _, f := range s.filters {
		if f.Matches(e) {
			return true
		}
	}
	return false
}

// connSubs tracks one connection's active subscriptions, keyed by
// subscription id. A duplicate REQ with the same id atomically replaces
// the prior subscription (spec.md §7, "Idempotence").
type connSubs struct {
	conn *transport.Conn
	subs map[string]*subscription

	// challenge is the AUTH challenge issued to this connection, or ""
	// if none was issued (RequireAuth disabled).
	challenge string
}

func newConnSubs(conn *transport.Conn) *connSubs {
	return &connSubs{conn: conn, subs: make(map[string]*subscription)}
}

// newChallenge returns a fresh random token for an AUTH challenge. A
// v4 UUID is unpredictable and collision-resistant enough for a
// per-connection, single-use nonce without reaching for crypto/rand
// directly.
func newChallenge() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (c *connSubs) register(subID string, filters []transport.Filter) {
	c.subs[subID] = &subscription{id: subID, filters: filters}
}

func (c *connSubs) unregister(subID string) {
	delete(c.subs, subID)
}
