package enums

import "fmt"

// ProductStatus maps to the product_status_enum enum in Postgres.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "AVAILABLE"
	ProductStatusSoldOut   ProductStatus = "SOLD_OUT"
	ProductStatusArchived  ProductStatus = "ARCHIVED"
)

var validProductStatuses = []ProductStatus{
	ProductStatusAvailable,
	ProductStatusSoldOut,
	ProductStatusArchived,
}

// IsValid reports whether the value matches the canonical product status enum.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
