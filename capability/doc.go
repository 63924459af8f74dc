// Package capability implements the grant/revoke/delegate authorization
// model: immutable records derived from signed events that authorize a
// pubkey to perform a typed action against group content.
//
// A Capability is never mutated once parsed. Revocation is handled by
// the caller recording the grant's event id in a revoked set and
// excluding revoked grants from the set passed to Authorize; delegation
// is validated with ValidateDelegation before a derived Capability is
// accepted into that set.
//
//	grant, err := capability.ParseGrant(in) // in is a GrantInput
//	if err != nil {
//		// capability:<kind>
//	}
//	matched := capability.Authorize(active, holder, capability.Write, now, &capability.EventContext{
//		Kind: 9,
//		Tags: event.Tags,
//	})
//	// matched is nil when no active capability authorizes the action
package capability
