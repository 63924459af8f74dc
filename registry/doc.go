// Package registry tracks live DKG and signing sessions by id. It is a
// bookkeeping layer only: it never inspects a session's internal state,
// only its lifetime (spec.md §9, "Session state vs. global registry").
package registry
