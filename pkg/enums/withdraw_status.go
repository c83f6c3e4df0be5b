package enums

import "fmt"

// WithdrawStatus maps to the withdraw_status_enum enum in Postgres.
// APPROVED and REJECTED are both terminal.
type WithdrawStatus string

const (
	WithdrawStatusPending  WithdrawStatus = "PENDING"
	WithdrawStatusApproved WithdrawStatus = "APPROVED"
	WithdrawStatusRejected WithdrawStatus = "REJECTED"
)

var validWithdrawStatuses = []WithdrawStatus{
	WithdrawStatusPending,
	WithdrawStatusApproved,
	WithdrawStatusRejected,
}

// IsValid reports whether the value matches the canonical withdraw status enum.
func (s WithdrawStatus) IsValid() bool {
	for _, candidate := range validWithdrawStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWithdrawStatus converts raw input into WithdrawStatus.
func ParseWithdrawStatus(value string) (WithdrawStatus, error) {
	for _, candidate := range validWithdrawStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdraw status %q", value)
}
