package enums

import "fmt"

// WalletOwnerType maps to the wallet_owner_type_enum enum in Postgres and
// identifies which party a wallet belongs to. The platform owns exactly one
// escrow wallet; producers and haulers each own one wallet keyed by their id.
type WalletOwnerType string

const (
	WalletOwnerPlatform WalletOwnerType = "PLATFORM"
	WalletOwnerProducer WalletOwnerType = "PRODUCER"
	WalletOwnerHauler   WalletOwnerType = "HAULER"
)

var validWalletOwnerTypes = []WalletOwnerType{
	WalletOwnerPlatform,
	WalletOwnerProducer,
	WalletOwnerHauler,
}

// IsValid reports whether the value matches the canonical wallet owner enum.
func (t WalletOwnerType) IsValid() bool {
	for _, candidate := range validWalletOwnerTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletOwnerType converts raw input into WalletOwnerType.
func ParseWalletOwnerType(value string) (WalletOwnerType, error) {
	for _, candidate := range validWalletOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet owner type %q", value)
}
