package capability

import "fmt"

// DelegateInput carries the fields of a signed delegate event, plus the
// original grant it claims to derive from, for ValidateDelegation.
type DelegateInput struct {
	Original *Capability
	Grant    GrantInput

	// SignerPubkey is the pubkey that signed the delegate event, as
	// recovered by the transport layer's signature check. Delegation
	// requires this equal Original.Holder.
	SignerPubkey string
	// References is the event id the delegate event's "e" tag points
	// at. Delegation requires this equal Original.EventID.
	References string
}

// ValidateDelegation checks the subset rules of spec.md §4.D and, if
// they hold, returns the derived Capability with its delegation chain
// extended by one link.
func ValidateDelegation(in DelegateInput) (*Capability, error) {
	o := in.Original
	if o.Type != Delegate {
		return nil, fail(KindNotDelegateType, fmt.Errorf("original capability %s is not a delegate grant", o.EventID))
	}
	if in.SignerPubkey != o.Holder {
		return nil, fail(KindWrongDelegator, fmt.Errorf("delegate event signed by %s, expected holder %s", in.SignerPubkey, o.Holder))
	}
	if in.References != o.EventID {
		return nil, fail(KindWrongReference, fmt.Errorf("delegate event references %s, expected %s", in.References, o.EventID))
	}

	derived, err := ParseGrant(in.Grant)
	if err != nil {
		return nil, err
	}

	if o.Qualifiers.Kinds != nil {
		if derived.Qualifiers.Kinds == nil || !kindsSubset(derived.Qualifiers.Kinds, o.Qualifiers.Kinds) {
			return nil, fail(KindKindsExceedParent, fmt.Errorf("delegation exceeds parent kinds"))
		}
	}
	if o.ExpiresAt != nil {
		if derived.ExpiresAt == nil || *derived.ExpiresAt > *o.ExpiresAt {
			return nil, fail(KindExpiryExceedsParent, fmt.Errorf("delegation expiry exceeds parent"))
		}
	}

	derived.Issuer = o.Issuer
	derived.DelegationChain = append(append([]DelegationLink{}, o.DelegationChain...), DelegationLink{
		Delegator: o.Holder,
		Delegatee: derived.Holder,
		BindingID: derived.EventID,
	})
	return derived, nil
}
