package relay

// Visibility controls whether a group's content is discoverable by
// non-members.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Access controls whether join requests are auto-approved.
type Access string

const (
	AccessOpen   Access = "open"
	AccessClosed Access = "closed"
)

// GroupState is the authorization core's view of one group: its admin
// and member sets, per spec.md's Data Model §3.
type GroupState struct {
	ID          string
	GroupPubkey string
	Visibility  Visibility
	Access      Access
	Admins      map[string]map[Permission]bool
	Members     map[string]bool
	// PendingJoins records join requests to a closed group awaiting
	// manual approval; it is never auto-drained.
	PendingJoins map[string]bool
}

// NewGroupState returns an empty GroupState ready to accept a creation
// event.
func NewGroupState(id, groupPubkey string, vis Visibility, access Access) *GroupState {
	return &GroupState{
		ID:           id,
		GroupPubkey:  groupPubkey,
		Visibility:   vis,
		Access:       access,
		Admins:       make(map[string]map[Permission]bool),
		Members:      make(map[string]bool),
		PendingJoins: make(map[string]bool),
	}
}

// IsAdmin reports whether pubkey is a recorded admin holding perm.
func (g *GroupState) IsAdmin(pubkey string, perm Permission) bool {
	perms, ok := g.Admins[pubkey]
	if !ok {
		return false
	}
	return perms[perm]
}

// IsMember reports whether pubkey is a recorded member.
func (g *GroupState) IsMember(pubkey string) bool {
	return g.Members[pubkey]
}

// AddAdmin grants pubkey the given permission set, merging with any it
// already holds.
func (g *GroupState) AddAdmin(pubkey string, perms ...Permission) {
	set, ok := g.Admins[pubkey]
	if !ok {
		set = make(map[Permission]bool)
		g.Admins[pubkey] = set
	}
	for _, p := range perms {
		set[p] = true
	}
}

// RemoveAdmin revokes every permission pubkey held.
func (g *GroupState) RemoveAdmin(pubkey string) {
	delete(g.Admins, pubkey)
}

// AddMember records pubkey as a group member.
func (g *GroupState) AddMember(pubkey string) {
	g.Members[pubkey] = true
}

// RemoveMember drops pubkey from the member set.
func (g *GroupState) RemoveMember(pubkey string) {
	delete(g.Members, pubkey)
}

// HandleJoinRequest applies the join-request policy of spec.md §4.E
// step 5: open groups auto-add the member, closed groups only record
// the request.
func (g *GroupState) HandleJoinRequest(pubkey string) {
	if g.Access == AccessOpen {
		g.AddMember(pubkey)
		return
	}
	g.PendingJoins[pubkey] = true
}
