package enums

import "fmt"

// ActorRole identifies the authenticated party behind a request. The identity
// provider is external; tokens carry one of these roles.
type ActorRole string

const (
	ActorRoleBuyer    ActorRole = "buyer"
	ActorRoleProducer ActorRole = "producer"
	ActorRoleHauler   ActorRole = "hauler"
	ActorRoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleBuyer,
	ActorRoleProducer,
	ActorRoleHauler,
	ActorRoleAdmin,
}

// IsValid reports whether the value matches a known actor role.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// WalletOwnerType maps a role onto the wallet owner it controls. Buyers do not
// hold wallets; the admin role operates the platform escrow wallet.
func (r ActorRole) WalletOwnerType() (WalletOwnerType, bool) {
	switch r {
	case ActorRoleProducer:
		return WalletOwnerProducer, true
	case ActorRoleHauler:
		return WalletOwnerHauler, true
	case ActorRoleAdmin:
		return WalletOwnerPlatform, true
	default:
		return "", false
	}
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
