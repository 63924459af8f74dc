package capability

import "fmt"

// GrantInput carries the fields a relay extracts from a signed grant
// event's tags before constructing a Capability. It is the capability
// package's boundary with the transport layer: callers translate an
// event's tag list into a GrantInput, keeping this package free of any
// dependency on the wire format.
type GrantInput struct {
	EventID   string
	Holder    string
	Issuer    string
	Type      string
	IssuedAt  int64
	ExpiresAt *int64

	Kinds        []int64
	RequiredTags []Tag
	ExcludedTags []Tag

	RateLimitCount  int
	RateLimitPeriod int64
}

// ParseGrant validates and constructs a Capability from a grant event's
// fields, per the parsing rules in spec.md §4.D.
func ParseGrant(in GrantInput) (*Capability, error) {
	if in.Holder == "" {
		return nil, fail(KindMissingHolder, fmt.Errorf("grant %s: missing holder", in.EventID))
	}
	t := Type(in.Type)
	if !validType(t) {
		return nil, fail(KindUnknownType, fmt.Errorf("grant %s: unknown type %q", in.EventID, in.Type))
	}

	var rl *RateLimit
	if in.RateLimitCount != 0 || in.RateLimitPeriod != 0 {
		if in.RateLimitCount < 1 || in.RateLimitPeriod < 1 {
			return nil, fail(KindBadRateLimit, fmt.Errorf("grant %s: rate limit must be count>=1, period>=1", in.EventID))
		}
		rl = &RateLimit{Count: in.RateLimitCount, PeriodSeconds: in.RateLimitPeriod}
	}

	return &Capability{
		EventID:  in.EventID,
		Type:     t,
		Holder:   in.Holder,
		Issuer:   in.Issuer,
		IssuedAt: in.IssuedAt,
		ExpiresAt: in.ExpiresAt,
		Qualifiers: Qualifiers{
			Kinds:        in.Kinds,
			RequiredTags: in.RequiredTags,
			ExcludedTags: in.ExcludedTags,
			RateLimit:    rl,
		},
	}, nil
}
