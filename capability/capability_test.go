package capability

import "testing"

func TestParseGrantRejectsUnknownType(t *testing.T) {
	_, err := ParseGrant(GrantInput{EventID: "e1", Holder: "U", Type: "delete-everything"})
	if err == nil {
		t.Fatal("expected parse failure for unknown type")
	}
	var capErr *Error
	if !asError(err, &capErr) || capErr.Kind != KindUnknownType {
		t.Fatalf("expected KindUnknownType, got %v", err)
	}
}

func TestParseGrantRequiresHolder(t *testing.T) {
	_, err := ParseGrant(GrantInput{EventID: "e1", Type: string(Write)})
	if err == nil {
		t.Fatal("expected parse failure for missing holder")
	}
}

func TestParseGrantRateLimit(t *testing.T) {
	if _, err := ParseGrant(GrantInput{EventID: "e1", Holder: "U", Type: string(Write), RateLimitCount: 0, RateLimitPeriod: 5}); err == nil {
		t.Fatal("expected bad rate limit failure")
	}
	c, err := ParseGrant(GrantInput{EventID: "e1", Holder: "U", Type: string(Write), RateLimitCount: 3, RateLimitPeriod: 60})
	if err != nil {
		t.Fatal(err)
	}
	if c.Qualifiers.RateLimit == nil || c.Qualifiers.RateLimit.Count != 3 {
		t.Fatal("rate limit not recorded")
	}
}

func TestAuthorizeScenario(t *testing.T) {
	// Concrete scenario 3 from spec.md §8: grant type=write,
	// qualifiers.kinds=[9,10] to U.
	grant, err := ParseGrant(GrantInput{
		EventID: "grant1", Holder: "U", Issuer: "G", Type: string(Write),
		Kinds: []int64{9, 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	caps := []*Capability{grant}

	if Authorize(caps, "U", Write, 0, &EventContext{Kind: 9, Tags: []Tag{{Name: "h", Value: "G"}}}) == nil {
		t.Error("kind 9 with h tag should be authorized")
	}
	if Authorize(caps, "U", Write, 0, &EventContext{Kind: 1, Tags: []Tag{{Name: "h", Value: "G"}}}) != nil {
		t.Error("kind 1 should be denied: outside qualifier kinds")
	}
}

func TestAuthorizeExpiry(t *testing.T) {
	expiry := int64(1000)
	grant, err := ParseGrant(GrantInput{EventID: "e1", Holder: "U", Type: string(Read), ExpiresAt: &expiry})
	if err != nil {
		t.Fatal(err)
	}
	caps := []*Capability{grant}
	if Authorize(caps, "U", Read, 999, nil) == nil {
		t.Error("should be authorized before expiry")
	}
	if Authorize(caps, "U", Read, 1000, nil) != nil {
		t.Error("should be denied at expiry boundary (now >= expiresAt)")
	}
}

func TestAuthorizeRequiredAndExcludedTags(t *testing.T) {
	grant, err := ParseGrant(GrantInput{
		EventID: "e1", Holder: "U", Type: string(Publish),
		RequiredTags: []Tag{{Name: "h", Value: "G"}},
		ExcludedTags: []Tag{{Name: "spam", Value: "1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	caps := []*Capability{grant}

	if Authorize(caps, "U", Publish, 0, &EventContext{Tags: []Tag{{Name: "h", Value: "G"}}}) == nil {
		t.Error("required tag present, should authorize")
	}
	if Authorize(caps, "U", Publish, 0, &EventContext{Tags: nil}) != nil {
		t.Error("required tag absent, should deny")
	}
	if Authorize(caps, "U", Publish, 0, &EventContext{Tags: []Tag{
		{Name: "h", Value: "G"}, {Name: "spam", Value: "1"},
	}}) != nil {
		t.Error("excluded tag present, should deny")
	}
}

func TestAuthorizeNoCapability(t *testing.T) {
	if Authorize(nil, "U", Write, 0, nil) != nil {
		t.Error("empty capability set must deny")
	}
}

func TestValidateDelegationSuccess(t *testing.T) {
	original, err := ParseGrant(GrantInput{
		EventID: "grant1", Holder: "A", Issuer: "G", Type: string(Delegate),
		Kinds: []int64{9, 10}, ExpiresAt: ptr(int64(2000)),
	})
	if err != nil {
		t.Fatal(err)
	}

	derived, err := ValidateDelegation(DelegateInput{
		Original:     original,
		SignerPubkey: "A",
		References:   "grant1",
		Grant: GrantInput{
			EventID: "deleg1", Holder: "B", Type: string(Delegate),
			Kinds: []int64{9}, ExpiresAt: ptr(int64(1500)),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if derived.Issuer != "G" {
		t.Error("derived issuer must be copied from original")
	}
	if len(derived.DelegationChain) != 1 || derived.DelegationChain[0].Delegator != "A" {
		t.Error("delegation chain not extended correctly")
	}
}

func TestValidateDelegationExceedsParentKinds(t *testing.T) {
	// Concrete scenario 6 from spec.md §8.
	original, err := ParseGrant(GrantInput{
		EventID: "grant1", Holder: "A", Issuer: "G", Type: string(Delegate),
		Kinds: []int64{9, 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = ValidateDelegation(DelegateInput{
		Original:     original,
		SignerPubkey: "A",
		References:   "grant1",
		Grant: GrantInput{
			EventID: "deleg1", Holder: "B", Type: string(Delegate),
			Kinds: []int64{9, 10, 11},
		},
	})
	if err == nil {
		t.Fatal("expected delegation to be rejected for exceeding parent kinds")
	}
	var capErr *Error
	if !asError(err, &capErr) || capErr.Kind != KindKindsExceedParent {
		t.Fatalf("expected KindKindsExceedParent, got %v", err)
	}
}

func TestValidateDelegationWrongSigner(t *testing.T) {
	original, _ := ParseGrant(GrantInput{EventID: "grant1", Holder: "A", Type: string(Delegate)})
	_, err := ValidateDelegation(DelegateInput{
		Original: original, SignerPubkey: "C", References: "grant1",
		Grant: GrantInput{EventID: "deleg1", Holder: "B", Type: string(Delegate)},
	})
	if err == nil {
		t.Fatal("expected rejection for delegation not signed by original holder")
	}
}

func TestValidateDelegationNotDelegateType(t *testing.T) {
	original, _ := ParseGrant(GrantInput{EventID: "grant1", Holder: "A", Type: string(Write)})
	_, err := ValidateDelegation(DelegateInput{
		Original: original, SignerPubkey: "A", References: "grant1",
		Grant: GrantInput{EventID: "deleg1", Holder: "B", Type: string(Delegate)},
	})
	if err == nil {
		t.Fatal("expected rejection: original is not a delegate-type grant")
	}
}

func ptr(v int64) *int64 { return &v }

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
