package transport

// Filter selects events for a subscription. Every non-empty clause is
// ANDed together (spec.md §8, "filter correctness"); within a clause,
// multiple values are ORed, matching the usual pub/sub filter
// semantics.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int64  `json:"kinds,omitempty"`
	E       []string `json:"#e,omitempty"`
	P       []string `json:"#p,omitempty"`
	H       []string `json:"#h,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsKind(list []int64, v int64) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func anyTagMatches(values []string, tagName string, e *Event) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range e.TagValues(tagName) {
		if containsString(values, v) {
			return true
		}
	}
	return false
}

// Matches reports whether e satisfies every non-empty clause of f.
func (f *Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, e.Pubkey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
		return false
	}
	if !anyTagMatches(f.E, "e", e) {
		return false
	}
	if !anyTagMatches(f.P, "p", e) {
		return false
	}
	if !anyTagMatches(f.H, "h", e) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	return true
}
