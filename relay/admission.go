package relay

import (
	"context"

	"github.com/kgroups/rootkey/capability"
	"github.com/kgroups/rootkey/transport"
)

// admit runs the per-event admission pipeline of spec.md §4.E in
// order, short-circuiting on the first failure.
func (r *Relay) admit(ctx context.Context, now int64, e *transport.Event) error {
	if err := r.checkSignature(e); err != nil {
		return err
	}
	if err := r.checkSize(e); err != nil {
		return err
	}
	if err := r.checkAuth(e); err != nil {
		return err
	}
	if err := r.checkCapabilitySigner(e); err != nil {
		return err
	}
	if err := r.checkGroupAndTimeline(now, e); err != nil {
		return err
	}
	return r.authorize(now, e)
}

func (r *Relay) checkSignature(e *transport.Event) error {
	ok, err := e.VerifyID()
	if err != nil || !ok {
		return invalid("malformed or mismatched event id")
	}
	valid, err := transport.VerifySignature(e)
	if err != nil {
		return invalid("signature check failed: %v", err)
	}
	if !valid {
		return invalid("signature verification failed")
	}
	return nil
}

func (r *Relay) checkSize(e *transport.Event) error {
	size := len(e.Content)
	for _, t := range e.Tags {
		for _, v := range t {
			size += len(v)
		}
	}
	if size > r.cfg.MaxEventSize {
		return invalid("event too large")
	}
	return nil
}

// checkAuth enforces spec.md §6's requireAuth option: once enabled, no
// event is admitted from a pubkey that has not completed the AUTH
// challenge-response (HandleAUTH). The AUTH event itself is exempt, or
// there would be no way to ever complete the handshake.
func (r *Relay) checkAuth(e *transport.Event) error {
	if !r.cfg.RequireAuth || e.Kind == KindRelayAuth {
		return nil
	}
	if !r.authed[e.Pubkey] {
		return authRequired("AUTH not yet completed")
	}
	return nil
}

// checkCapabilitySigner implements step 3 of spec.md §4.E. Capability
// events carry no group-id tag, so "the group public key" means any
// group this relay knows about; with zero groups indexed yet a
// bootstrap grant is let through (there is nothing to check against).
func (r *Relay) checkCapabilitySigner(e *transport.Event) error {
	if !isCapabilityKind(e.Kind) {
		return nil
	}
	if len(r.groups) == 0 {
		return nil
	}
	for _, g := range r.groups {
		if e.Pubkey == g.GroupPubkey {
			return nil
		}
	}
	return restricted("capability events must be signed by the group key")
}

func (r *Relay) checkGroupAndTimeline(now int64, e *transport.Event) error {
	if !isGroupUserKind(e.Kind) {
		return nil
	}
	groupID, hasTag := e.Tag("h")
	if !hasTag {
		return invalid("missing h tag")
	}
	if e.Kind != ModCreateGroup {
		if _, exists := r.groups[groupID]; !exists {
			return invalid("group does not exist")
		}
	}
	if !isMetadataKind(e.Kind) {
		refs := e.TagValues("previous")
		if len(refs) < r.cfg.MinPreviousRefs {
			return invalid("missing required previous-event references")
		}
		for _, ref := range refs {
			if len(ref) != 8 {
				return invalid("bad previous-ref format: must be an 8-char id prefix")
			}
		}
	}
	if r.cfg.LatePublicationWindow > 0 && now-e.CreatedAt > r.cfg.LatePublicationWindow {
		return invalid("Late publication rejected")
	}
	return nil
}

func (r *Relay) authorize(now int64, e *transport.Event) error {
	groupID := groupIDOf(e)
	g := r.groups[groupID]

	switch {
	case isChatKind(e.Kind):
		return r.authorizeChat(now, e, g)
	case isModerationKind(e.Kind):
		return r.authorizeModeration(e, g)
	case e.Kind == KindJoinRequest, e.Kind == KindLeaveRequest:
		return nil // always accepted at the admission layer; group update happens in HandleEVENT
	default:
		return nil
	}
}

func (r *Relay) authorizeChat(now int64, e *transport.Event, g *GroupState) error {
	caps := r.activeCapabilities(e.Pubkey)
	ctx := &capability.EventContext{Kind: e.Kind, Tags: toCapabilityTags(e.Tags)}
	if c := capability.Authorize(caps, e.Pubkey, capability.Write, now, ctx); c != nil {
		if !r.limits.allow(e.Pubkey, c) {
			return restricted("rate limit exceeded")
		}
		return nil
	}
	if g != nil && g.IsMember(e.Pubkey) {
		return nil
	}
	return restricted("not authorized")
}

func (r *Relay) authorizeModeration(e *transport.Event, g *GroupState) error {
	if e.Kind == ModCreateGroup {
		return nil // founding event; no existing admin set to check against
	}
	if g == nil {
		return invalid("group does not exist")
	}
	perm, known := moderationPermission[e.Kind]
	if !known {
		return blocked("unsupported moderation kind")
	}
	if !g.IsAdmin(e.Pubkey, perm) {
		return restricted("not authorized")
	}
	return nil
}

// toCapabilityTags flattens an event's [name, value, ...] tag lists
// into the (name, value) pairs capability qualifiers are matched
// against, taking only the first value of each tag.
func toCapabilityTags(tags [][]string) []capability.Tag {
	out := make([]capability.Tag, 0, len(tags))
	for _, t := range tags {
		if len(t) >= 2 {
			out = append(out, capability.Tag{Name: t[0], Value: t[1]})
		}
	}
	return out
}
