package enums

import "fmt"

// PaymentEventStatus enumerates the statuses the payment collaborator can
// deliver on its webhook. Values are lowercase on the wire.
type PaymentEventStatus string

const (
	PaymentEventSettled   PaymentEventStatus = "settled"
	PaymentEventCancelled PaymentEventStatus = "cancelled"
	PaymentEventExpired   PaymentEventStatus = "expired"
	PaymentEventDenied    PaymentEventStatus = "denied"
)

var validPaymentEventStatuses = []PaymentEventStatus{
	PaymentEventSettled,
	PaymentEventCancelled,
	PaymentEventExpired,
	PaymentEventDenied,
}

// IsValid reports whether the value matches a known payment event status.
func (s PaymentEventStatus) IsValid() bool {
	for _, candidate := range validPaymentEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettlement reports whether the event confirms payment; every other valid
// status voids the order.
func (s PaymentEventStatus) IsSettlement() bool {
	return s == PaymentEventSettled
}

// ParsePaymentEventStatus converts raw input into PaymentEventStatus.
func ParsePaymentEventStatus(value string) (PaymentEventStatus, error) {
	for _, candidate := range validPaymentEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event status %q", value)
}
