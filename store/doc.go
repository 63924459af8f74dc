// Package store provides a bbolt-backed implementation of relay.Store:
// durable group state, accepted capability grants, and revocations.
// One Update or View transaction per operation, matching the relay's
// single-writer event-loop model (spec.md §5).
package store
