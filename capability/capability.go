package capability

// Type is the fixed set of actions a capability can authorize. Any
// other type string is a parse failure (spec.md §4.D).
type Type string

const (
	Read     Type = "read"
	Write    Type = "write"
	Publish  Type = "publish"
	Delete   Type = "delete"
	Delegate Type = "delegate"
)

func validType(t Type) bool {
	switch t {
	case Read, Write, Publish, Delete, Delegate:
		return true
	}
	return false
}

// Tag is a single (name, value) pair as carried in an event's tag list.
type Tag struct {
	Name  string
	Value string
}

// RateLimit bounds the holder to Count actions per PeriodSeconds.
// Enforcement (counters) is the collaborator's responsibility; the
// core only exposes the quota.
type RateLimit struct {
	Count         int
	PeriodSeconds int64
}

// Qualifiers narrow which events a Capability applies to.
type Qualifiers struct {
	Kinds        []int64 // nil means unqualified (any kind)
	RequiredTags []Tag
	ExcludedTags []Tag
	RateLimit    *RateLimit
}

// DelegationLink is one hop in a delegation chain: delegator handed
// delegatee an authorization bound by the signed event bindingEventID.
type DelegationLink struct {
	Delegator   string
	Delegatee   string
	BindingID   string
}

// Capability is an immutable record derived from a signed grant,
// revoke, or delegate event. It is never mutated after parsing; a
// revocation is a separate record referencing the grant's event id,
// never an update to this struct.
type Capability struct {
	EventID         string
	Type            Type
	Holder          string // pubkey
	Issuer          string // the group key
	Qualifiers      Qualifiers
	IssuedAt        int64
	ExpiresAt       *int64 // nil means no expiry
	DelegationChain []DelegationLink
}

// HasKind reports whether k is permitted by c's kind qualifier. An
// unset qualifier (nil Kinds) permits every kind.
func (c *Capability) HasKind(k int64) bool {
	if c.Qualifiers.Kinds == nil {
		return true
	}
	for _, allowed := range c.Qualifiers.Kinds {
		if allowed == k {
			return true
		}
	}
	return false
}

func kindSetContains(set []int64, k int64) bool {
	for _, v := range set {
		if v == k {
			return true
		}
	}
	return false
}

// kindsSubset reports whether every element of sub appears in super.
func kindsSubset(sub, super []int64) bool {
	for _, k := range sub {
		if !kindSetContains(super, k) {
			return false
		}
	}
	return true
}
