package enums

import "fmt"

// BatchStatus maps to the batch_status_enum enum in Postgres.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "ACTIVE"
	BatchStatusHarvested BatchStatus = "HARVESTED"
	BatchStatusCancelled BatchStatus = "CANCELLED"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusActive,
	BatchStatusHarvested,
	BatchStatusCancelled,
}

// IsValid reports whether the value matches the canonical batch status enum.
func (s BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
