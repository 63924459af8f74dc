package capability

import "fmt"

// Kind enumerates the distinct capability failure reasons spec.md §7
// groups under "capability:<kind>": parse failures and delegation
// chain violations.
type Kind string

const (
	KindUnknownType          Kind = "unknown_type"
	KindMissingHolder        Kind = "missing_holder"
	KindBadRateLimit         Kind = "bad_rate_limit"
	KindNotDelegateType      Kind = "not_delegate_type"
	KindWrongDelegator       Kind = "wrong_delegator"
	KindWrongReference       Kind = "wrong_reference"
	KindKindsExceedParent    Kind = "delegation_exceeds_parent_kinds"
	KindExpiryExceedsParent  Kind = "delegation_exceeds_parent_expiry"
	KindChainMismatch        Kind = "chain_mismatch"
)

// Error is a capability failure, rendered as "capability:<kind>" per
// the error-kind taxonomy in spec.md §7.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capability:%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("capability:%s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}
