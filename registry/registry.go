package registry

import (
	"fmt"
	"sync"

	"github.com/kgroups/rootkey/session"
)

// ID is a DKG/signing session identifier, matching dkg.Config.SessionID.
type ID [32]byte

// Registry is a process-local table of live session.Participant values,
// keyed by session id. Ownership of a session is scoped to whichever
// goroutine drives its ingest calls; the registry itself never
// inspects a Participant's internal state, only tracks whether it
// still exists.
type Registry struct {
	mu       sync.Mutex
	sessions map[ID]*session.Participant
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[ID]*session.Participant)}
}

// Insert registers p under id, replacing any prior entry. Call this
// once a session.Participant has been constructed and is ready to
// receive ingest calls.
func (r *Registry) Insert(id ID, p *session.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = p
}

// Get returns the Participant registered under id, or false if none
// exists (already finalized, failed, or never created).
func (r *Registry) Get(id ID) (*session.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[id]
	return p, ok
}

// Delete removes id's entry, if any. Call this once a session reaches
// a terminal state: finalized (its KeyPackage or signature has been
// handed to the caller) or failed.
func (r *Registry) Delete(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// MustInsert registers p under id and returns an error if one already
// exists, instead of silently overwriting it. Useful at session-create
// time, where a duplicate id indicates a caller bug or a replayed
// DKGInit event.
func (r *Registry) MustInsert(id ID, p *session.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("registry: session %x already exists", id)
	}
	r.sessions[id] = p
	return nil
}
