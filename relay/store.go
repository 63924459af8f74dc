package relay

import (
	"context"

	"github.com/kgroups/rootkey/capability"
)

// Store persists the durable subset of authorization-core state named
// in spec.md §6: group metadata keyed by groupId, the set of accepted
// grant/revoke/delegate events with their ids, and admin/member sets.
// Content-event durability is implementation-optional for the MVP, so
// it has no place in this interface. The store package provides a
// bbolt-backed implementation; Relay depends only on this interface so
// tests can supply an in-memory fake.
type Store interface {
	SaveGroup(ctx context.Context, g *GroupState) error
	LoadGroups(ctx context.Context) ([]*GroupState, error)

	SaveCapability(ctx context.Context, c *capability.Capability) error
	SaveRevocation(ctx context.Context, revokedEventID string) error
	LoadCapabilities(ctx context.Context) ([]*capability.Capability, error)
	LoadRevocations(ctx context.Context) ([]string, error)

	Close() error
}
