package auth

import "github.com/spec-kit/checkin-service/internal/domain"

// roleCapabilities is the static role to capability table. Identities never
// carry capabilities directly; they are derived from the role at resolve time.
var roleCapabilities = map[domain.Role][]domain.Capability{
	domain.RoleUser: {},
	domain.RoleGate: {domain.CapabilityShowCredential},
	domain.RoleManager: {
		domain.CapabilityListIdentities,
		domain.CapabilityResetTimer,
	},
	domain.RoleAdmin: {
		domain.CapabilityManageIdentities,
		domain.CapabilityListIdentities,
		domain.CapabilityResetTimer,
	},
}

// CapabilitiesFor returns the capability set derived from a role.
func CapabilitiesFor(role domain.Role) map[domain.Capability]struct{} {
	caps := make(map[domain.Capability]struct{}, len(roleCapabilities[role]))
	for _, cap := range roleCapabilities[role] {
		caps[cap] = struct{}{}
	}
	return caps
}

// HasCapability reports whether the role grants the given capability.
func HasCapability(role domain.Role, cap domain.Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == cap {
			return true
		}
	}
	return false
}
