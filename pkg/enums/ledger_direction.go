package enums

import "fmt"

// LedgerDirection maps to the ledger_direction_enum enum in Postgres.
type LedgerDirection string

const (
	LedgerDirectionCredit LedgerDirection = "CREDIT"
	LedgerDirectionDebit  LedgerDirection = "DEBIT"
)

var validLedgerDirections = []LedgerDirection{
	LedgerDirectionCredit,
	LedgerDirectionDebit,
}

// IsValid reports whether the value matches the canonical ledger direction enum.
func (d LedgerDirection) IsValid() bool {
	for _, candidate := range validLedgerDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseLedgerDirection converts raw input into LedgerDirection.
func ParseLedgerDirection(value string) (LedgerDirection, error) {
	for _, candidate := range validLedgerDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger direction %q", value)
}
