package domain

import "time"

// Role enumerates identity roles. Capabilities are derived from the role
// via auth.CapabilitiesFor; the role itself is stored on the identity row.
type Role string

const (
	RoleUser    Role = "user"
	RoleGate    Role = "gate"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Capability is an atomic permission granted to identities through their role.
type Capability string

const (
	CapabilityShowCredential   Capability = "showCredential"
	CapabilityListIdentities   Capability = "listIdentities"
	CapabilityResetTimer       Capability = "resetTimer"
	CapabilityManageIdentities Capability = "manageIdentities"
)

// Identity is the domain model for an account that can hold or redeem
// presence credentials. Immutable for the duration of a session.
type Identity struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName joins first and last name for client-facing payloads.
func (i *Identity) DisplayName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}
