package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kgroups/rootkey/capability"
	"github.com/kgroups/rootkey/transport"
)

// Relay is the authorization core of spec.md §4.E. It is driven by a
// single event-loop task per spec.md §5: every exported method that
// mutates state must be called from that one task. Connections push
// decoded frames in; Relay pushes encoded frames back out over each
// connection's transport.Conn.
type Relay struct {
	cfg    Config
	log    *zap.SugaredLogger
	store  Store
	limits *limiterRegistry

	groups map[string]*GroupState

	capsByHolder  map[string][]*capability.Capability
	capsByEventID map[string]*capability.Capability
	revoked       map[string]bool

	recentIDs *recentIDWindow

	conns map[*transport.Conn]*connSubs

	// authed tracks pubkeys that have completed a valid AUTH
	// challenge-response on some connection. Authentication is tracked
	// relay-wide rather than strictly per-connection: the admission
	// pipeline (admit, in admission.go) checks only the signer's
	// pubkey, not which connection submitted the event, keeping
	// HandleEVENT's signature free of a *transport.Conn parameter.
	authed map[string]bool

	jobs chan connJob
}

// New constructs a Relay. store may be nil, in which case state is
// process-local only (useful for tests).
func New(cfg Config, log *zap.SugaredLogger, store Store) *Relay {
	return &Relay{
		cfg:           cfg,
		log:           log,
		store:         store,
		limits:        newLimiterRegistry(),
		groups:        make(map[string]*GroupState),
		capsByHolder:  make(map[string][]*capability.Capability),
		capsByEventID: make(map[string]*capability.Capability),
		revoked:       make(map[string]bool),
		recentIDs:     newRecentIDWindow(cfg.RecentIDWindowSize),
		conns:         make(map[*transport.Conn]*connSubs),
		authed:        make(map[string]bool),
		jobs:          make(chan connJob, 256),
	}
}

// LoadState hydrates the relay from Store at startup.
func (r *Relay) LoadState(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	groups, err := r.store.LoadGroups(ctx)
	if err != nil {
		return fmt.Errorf("relay: load groups: %w", err)
	}
	for _, g := range groups {
		r.groups[g.ID] = g
	}
	caps, err := r.store.LoadCapabilities(ctx)
	if err != nil {
		return fmt.Errorf("relay: load capabilities: %w", err)
	}
	for _, c := range caps {
		r.indexCapability(c)
	}
	revoked, err := r.store.LoadRevocations(ctx)
	if err != nil {
		return fmt.Errorf("relay: load revocations: %w", err)
	}
	for _, id := range revoked {
		r.revoked[id] = true
	}
	return nil
}

func (r *Relay) indexCapability(c *capability.Capability) {
	r.capsByEventID[c.EventID] = c
	r.capsByHolder[c.Holder] = append(r.capsByHolder[c.Holder], c)
}

// activeCapabilities returns holder's capabilities excluding any whose
// originating grant has been revoked.
func (r *Relay) activeCapabilities(holder string) []*capability.Capability {
	all := r.capsByHolder[holder]
	out := make([]*capability.Capability, 0, len(all))
	for _, c := range all {
		if !r.revoked[c.EventID] {
			out = append(out, c)
		}
	}
	return out
}

// AddConnection registers a new client connection with no
// subscriptions yet and, when the relay requires AUTH, issues it a
// fresh challenge (spec.md §6's `["AUTH", challenge]` frame).
func (r *Relay) AddConnection(conn *transport.Conn) {
	cs := newConnSubs(conn)
	r.conns[conn] = cs
	if !r.cfg.RequireAuth {
		return
	}
	challenge, err := newChallenge()
	if err != nil {
		r.log.Errorw("generate auth challenge", "err", err)
		return
	}
	cs.challenge = challenge
	frame, err := transport.EncodeAuthChallengeFrame(challenge)
	if err != nil {
		r.log.Errorw("encode auth challenge", "err", err)
		return
	}
	if err := conn.Send(frame); err != nil {
		r.log.Debugw("send auth challenge failed", "err", err)
	}
}

// HandleAUTH validates a client's AUTH response against the challenge
// issued to conn and, on success, marks e.Pubkey authenticated. The
// returned error, like HandleEVENT's, is an *Error suitable for an OK
// frame's message.
func (r *Relay) HandleAUTH(conn *transport.Conn, e *transport.Event) error {
	cs, ok := r.conns[conn]
	if !ok {
		return invalid("unknown connection")
	}
	if e.Kind != KindRelayAuth {
		return invalid("AUTH event must have kind %d", KindRelayAuth)
	}
	if cs.challenge == "" {
		return invalid("no challenge was issued for this connection")
	}
	if err := r.checkSignature(e); err != nil {
		return err
	}
	challenge, _ := e.Tag("challenge")
	if challenge != cs.challenge {
		return invalid("challenge mismatch")
	}
	r.authed[e.Pubkey] = true
	return nil
}

// RemoveConnection drops a connection and every subscription it held.
func (r *Relay) RemoveConnection(conn *transport.Conn) {
	delete(r.conns, conn)
}

// HandleREQ registers or replaces a subscription for conn, per
// spec.md §7's idempotence rule for duplicate REQ ids.
func (r *Relay) HandleREQ(conn *transport.Conn, subID string, filters []transport.Filter) error {
	cs, ok := r.conns[conn]
	if !ok {
		return fmt.Errorf("relay: unknown connection")
	}
	if _, exists := cs.subs[subID]; !exists && len(cs.subs) >= r.cfg.MaxSubscriptionsPerConn {
		return invalid("too many subscriptions (max %d)", r.cfg.MaxSubscriptionsPerConn)
	}
	cs.register(subID, filters)
	ActiveSubscriptions.Set(float64(r.totalSubscriptions()))
	return nil
}

// HandleCLOSE removes a subscription.
func (r *Relay) HandleCLOSE(conn *transport.Conn, subID string) {
	if cs, ok := r.conns[conn]; ok {
		cs.unregister(subID)
		ActiveSubscriptions.Set(float64(r.totalSubscriptions()))
	}
}

func (r *Relay) totalSubscriptions() int {
	n := 0
	for _, cs := range r.conns {
		n += len(cs.subs)
	}
	return n
}

// HandleEVENT runs the full admission pipeline of spec.md §4.E and, on
// success, stores and broadcasts the event. The returned error, if
// non-nil, is a *Error suitable for encoding directly into an OK
// frame's message.
func (r *Relay) HandleEVENT(ctx context.Context, now int64, e *transport.Event) error {
	if err := r.admit(ctx, now, e); err != nil {
		EventsRejected.WithLabelValues(rejectionLabel(err)).Inc()
		r.log.Debugw("event rejected", "kind", e.Kind, "id", e.ID, "err", err)
		return err
	}

	r.recentIDs.Add(e.ID)
	if e.Kind == ModCreateGroup {
		r.createGroup(ctx, e)
	}
	if isCapabilityKind(e.Kind) {
		r.applyCapabilityEvent(ctx, e)
	}
	if e.Kind == KindJoinRequest || e.Kind == KindLeaveRequest {
		if g := r.groups[groupIDOf(e)]; g != nil {
			if e.Kind == KindJoinRequest {
				g.HandleJoinRequest(e.Pubkey)
			} else {
				g.RemoveMember(e.Pubkey)
			}
			if r.store != nil {
				if err := r.store.SaveGroup(ctx, g); err != nil {
					r.log.Errorw("persist group membership", "err", err)
				}
			}
		}
	}

	EventsAccepted.WithLabelValues(fmt.Sprintf("%d", e.Kind)).Inc()
	delivered := r.broadcast(e)
	BroadcastFanout.Observe(float64(delivered))
	return nil
}

// createGroup brings a GroupState into existence from a ModCreateGroup
// event, making its signer the founding admin with every permission.
// groupPubkey defaults to the creator's own pubkey unless the event
// carries an explicit "group-pubkey" tag, e.g. a FROST group key
// established out of band via a prior DKG ceremony.
func (r *Relay) createGroup(ctx context.Context, e *transport.Event) {
	id := groupIDOf(e)
	if id == "" {
		return
	}
	if _, exists := r.groups[id]; exists {
		return
	}
	groupPubkey := e.Pubkey
	if gp, ok := e.Tag("group-pubkey"); ok {
		groupPubkey = gp
	}
	vis := VisibilityPublic
	if v, ok := e.Tag("visibility"); ok && v == string(VisibilityPrivate) {
		vis = VisibilityPrivate
	}
	access := AccessOpen
	if a, ok := e.Tag("access"); ok && a == string(AccessClosed) {
		access = AccessClosed
	}
	g := NewGroupState(id, groupPubkey, vis, access)
	g.AddAdmin(e.Pubkey, PermAddUser, PermRemoveUser, PermEditMetadata, PermDeleteEvent, PermDeleteGroup)
	g.AddMember(e.Pubkey)
	r.groups[id] = g
	if r.store != nil {
		if err := r.store.SaveGroup(ctx, g); err != nil {
			r.log.Errorw("persist new group", "err", err)
		}
	}
}

func rejectionLabel(err error) string {
	if re, ok := err.(*Error); ok {
		return string(re.Kind)
	}
	return "unknown"
}

func groupIDOf(e *transport.Event) string {
	h, _ := e.Tag("h")
	return h
}

func (r *Relay) applyCapabilityEvent(ctx context.Context, e *transport.Event) {
	switch e.Kind {
	case KindCapabilityGrant:
		c, err := parseGrantEvent(e)
		if err != nil {
			r.log.Warnw("dropping malformed grant after admission", "err", err)
			return
		}
		r.indexCapability(c)
		if r.store != nil {
			if err := r.store.SaveCapability(ctx, c); err != nil {
				r.log.Errorw("persist capability", "err", err)
			}
		}
	case KindCapabilityRevoke:
		refID, _ := e.Tag("e")
		r.revoked[refID] = true
		if r.store != nil {
			if err := r.store.SaveRevocation(ctx, refID); err != nil {
				r.log.Errorw("persist revocation", "err", err)
			}
		}
	case KindCapabilityDelegate:
		refID, _ := e.Tag("e")
		original := r.capsByEventID[refID]
		if original == nil {
			r.log.Warnw("delegate references unknown grant", "ref", refID)
			return
		}
		grant, err := grantInputFromEvent(e)
		if err != nil {
			r.log.Warnw("dropping malformed delegate after admission", "err", err)
			return
		}
		derived, err := capability.ValidateDelegation(capability.DelegateInput{
			Original: original, Grant: grant, SignerPubkey: e.Pubkey, References: refID,
		})
		if err != nil {
			r.log.Warnw("delegation rejected", "err", err)
			return
		}
		r.indexCapability(derived)
		if r.store != nil {
			if err := r.store.SaveCapability(ctx, derived); err != nil {
				r.log.Errorw("persist delegated capability", "err", err)
			}
		}
	}
}

// broadcast delivers e to every subscription whose filters match,
// suppressing duplicate delivery within this single dispatch (once per
// subscription, not once per matching filter). Filters are matched
// in-memory against the already-admitted event rather than re-querying
// the store per filter per event (spec.md §9, open question (c)).
func (r *Relay) broadcast(e *transport.Event) int {
	delivered := 0
	for conn, cs := range r.conns {
		for _, sub := range cs.subs {
			if !sub.matches(e) {
				continue
			}
			frame, err := transport.EncodeEventFrame(sub.id, e)
			if err != nil {
				r.log.Errorw("encode broadcast frame", "err", err)
				continue
			}
			if err := conn.Send(frame); err != nil {
				r.log.Debugw("broadcast send failed", "err", err)
				continue
			}
			delivered++
		}
	}
	return delivered
}

func parseGrantEvent(e *transport.Event) (*capability.Capability, error) {
	in, err := grantInputFromEvent(e)
	if err != nil {
		return nil, err
	}
	return capability.ParseGrant(in)
}

func grantInputFromEvent(e *transport.Event) (capability.GrantInput, error) {
	holder, _ := e.Tag("p")
	typ, _ := e.Tag("capability")
	in := capability.GrantInput{
		EventID:  e.ID,
		Holder:   holder,
		Issuer:   e.Pubkey,
		Type:     typ,
		IssuedAt: e.CreatedAt,
	}
	if exp, ok := e.Tag("expiration"); ok {
		var v int64
		if _, err := fmt.Sscanf(exp, "%d", &v); err == nil {
			in.ExpiresAt = &v
		}
	}
	for _, k := range e.TagValues("kinds") {
		var v int64
		if _, err := fmt.Sscanf(k, "%d", &v); err == nil {
			in.Kinds = append(in.Kinds, v)
		}
	}
	for _, t := range e.TagValues("required-tags") {
		if tag, ok := parsePairTag(t); ok {
			in.RequiredTags = append(in.RequiredTags, tag)
		}
	}
	for _, t := range e.TagValues("excluded-tags") {
		if tag, ok := parsePairTag(t); ok {
			in.ExcludedTags = append(in.ExcludedTags, tag)
		}
	}
	if rl, ok := e.Tag("rate-limit"); ok {
		var count int
		var period int64
		if _, err := fmt.Sscanf(rl, "%d:%d", &count, &period); err == nil {
			in.RateLimitCount = count
			in.RateLimitPeriod = period
		}
	}
	return in, nil
}

// parsePairTag splits a "name:value" encoded tag value.
func parsePairTag(s string) (capability.Tag, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return capability.Tag{}, false
	}
	return capability.Tag{Name: parts[0], Value: parts[1]}, true
}

// Now returns the current Unix time; extracted so tests can supply a
// fixed clock without faking time.Now globally.
func Now() int64 { return time.Now().Unix() }
