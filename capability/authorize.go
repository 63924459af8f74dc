package capability

// EventContext carries the subset of an inbound event Authorize needs
// to check qualifiers against: its kind and tags. It is nil for
// authorization decisions that aren't about a specific event.
type EventContext struct {
	Kind int64
	Tags []Tag
}

func tagsContain(tags []Tag, t Tag) bool {
	for _, have := range tags {
		if have.Name == t.Name && have.Value == t.Value {
			return true
		}
	}
	return false
}

// Authorize implements the deterministic decision procedure of
// spec.md §4.D: given the capability set C for holder h, action a, the
// current time, and (optionally) the event being authorized, it
// returns the first matching capability or nil if none authorizes the
// action. It is a pure function of its inputs and never mutates C.
func Authorize(capabilities []*Capability, holder string, action Type, now int64, evt *EventContext) *Capability {
	for _, c := range capabilities {
		if c.Holder != holder || c.Type != action {
			continue
		}
		if c.ExpiresAt != nil && now >= *c.ExpiresAt {
			continue
		}
		if evt != nil {
			if c.Qualifiers.Kinds != nil && !c.HasKind(evt.Kind) {
				continue
			}
			if !allTagsPresent(c.Qualifiers.RequiredTags, evt.Tags) {
				continue
			}
			if anyTagPresent(c.Qualifiers.ExcludedTags, evt.Tags) {
				continue
			}
		}
		return c
	}
	return nil
}

func allTagsPresent(required, tags []Tag) bool {
	for _, r := range required {
		if !tagsContain(tags, r) {
			return false
		}
	}
	return true
}

func anyTagPresent(excluded, tags []Tag) bool {
	for _, e := range excluded {
		if tagsContain(tags, e) {
			return true
		}
	}
	return false
}
