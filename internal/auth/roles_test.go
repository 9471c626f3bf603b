package auth

import (
	"testing"

	"github.com/spec-kit/checkin-service/internal/domain"
)

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		role    domain.Role
		granted []domain.Capability
		denied  []domain.Capability
	}{
		{
			role:   domain.RoleUser,
			denied: []domain.Capability{domain.CapabilityShowCredential, domain.CapabilityListIdentities, domain.CapabilityResetTimer, domain.CapabilityManageIdentities},
		},
		{
			role:    domain.RoleGate,
			granted: []domain.Capability{domain.CapabilityShowCredential},
			denied:  []domain.Capability{domain.CapabilityListIdentities, domain.CapabilityResetTimer, domain.CapabilityManageIdentities},
		},
		{
			role:    domain.RoleManager,
			granted: []domain.Capability{domain.CapabilityListIdentities, domain.CapabilityResetTimer},
			denied:  []domain.Capability{domain.CapabilityShowCredential, domain.CapabilityManageIdentities},
		},
		{
			role:    domain.RoleAdmin,
			granted: []domain.Capability{domain.CapabilityListIdentities, domain.CapabilityResetTimer, domain.CapabilityManageIdentities},
			denied:  []domain.Capability{domain.CapabilityShowCredential},
		},
	}

	for _, tc := range tests {
		caps := CapabilitiesFor(tc.role)
		for _, cap := range tc.granted {
			if _, ok := caps[cap]; !ok {
				t.Errorf("role %s missing capability %s", tc.role, cap)
			}
			if !HasCapability(tc.role, cap) {
				t.Errorf("HasCapability(%s, %s) = false", tc.role, cap)
			}
		}
		for _, cap := range tc.denied {
			if _, ok := caps[cap]; ok {
				t.Errorf("role %s unexpectedly granted %s", tc.role, cap)
			}
			if HasCapability(tc.role, cap) {
				t.Errorf("HasCapability(%s, %s) = true", tc.role, cap)
			}
		}
	}
}

func TestPrincipalHas(t *testing.T) {
	p := &Principal{Capabilities: CapabilitiesFor(domain.RoleManager)}

	if !p.Has(domain.CapabilityListIdentities) {
		t.Fatal("manager principal should list identities")
	}
	if !p.Has(domain.CapabilityListIdentities, domain.CapabilityResetTimer) {
		t.Fatal("manager principal should hold both capabilities")
	}
	if p.Has(domain.CapabilityListIdentities, domain.CapabilityManageIdentities) {
		t.Fatal("partial capability sets must not satisfy Has")
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	if caps := CapabilitiesFor(domain.Role("ghost")); len(caps) != 0 {
		t.Fatalf("unknown role granted %d capabilities", len(caps))
	}
}
