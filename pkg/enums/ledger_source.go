package enums

import "fmt"

// LedgerSource maps to the ledger_source_enum enum in Postgres and tags the
// business event behind a ledger entry.
type LedgerSource string

const (
	LedgerSourceOrder       LedgerSource = "ORDER"
	LedgerSourceLogisticFee LedgerSource = "LOGISTIC_FEE"
	LedgerSourceWithdrawal  LedgerSource = "WITHDRAWAL"
	LedgerSourceRefund      LedgerSource = "REFUND"
	LedgerSourceRelease     LedgerSource = "RELEASE"
)

var validLedgerSources = []LedgerSource{
	LedgerSourceOrder,
	LedgerSourceLogisticFee,
	LedgerSourceWithdrawal,
	LedgerSourceRefund,
	LedgerSourceRelease,
}

// IsValid reports whether the value matches the canonical ledger source enum.
func (s LedgerSource) IsValid() bool {
	for _, candidate := range validLedgerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerSource converts raw input into LedgerSource.
func ParseLedgerSource(value string) (LedgerSource, error) {
	for _, candidate := range validLedgerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source %q", value)
}
