package enums

import "fmt"

// DeliveryStatus maps to the delivery_status_enum enum in Postgres.
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "PENDING"
	DeliveryStatusAssigned DeliveryStatus = "ASSIGNED"
	DeliveryStatusPickedUp DeliveryStatus = "PICKED_UP"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusAssigned,
	DeliveryStatusPickedUp,
	DeliveryStatusDelivered,
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:  {DeliveryStatusAssigned, DeliveryStatusPickedUp},
	DeliveryStatusAssigned: {DeliveryStatusPickedUp},
	DeliveryStatusPickedUp: {DeliveryStatusDelivered},
}

// IsValid reports whether the value matches the canonical delivery status enum.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no outbound transitions.
func (s DeliveryStatus) IsTerminal() bool {
	return len(deliveryTransitions[s]) == 0
}

// CanTransitionTo reports whether the transition s -> target is allowed.
func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	for _, candidate := range deliveryTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts raw input into DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
