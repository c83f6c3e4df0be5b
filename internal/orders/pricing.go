package orders

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/aquatrade/aquatrade-backend/pkg/config"
)

// Pricing holds the marketplace fee constants applied at order creation.
type Pricing struct {
	LogisticsRate    decimal.Decimal
	LogisticsStepKm  float64
	InsuranceRateBps int64
}

// PricingFromConfig maps the payment configuration onto pricing constants.
func PricingFromConfig(cfg config.PaymentConfig) Pricing {
	return Pricing{
		LogisticsRate:    decimal.NewFromInt(cfg.LogisticsRate),
		LogisticsStepKm:  cfg.LogisticsStepKm,
		InsuranceRateBps: cfg.InsuranceRateBps,
	}
}

// LogisticsFee charges one rate unit per started distance step. Any distance,
// however small, pays at least one step.
func (p Pricing) LogisticsFee(distanceKm float64) decimal.Decimal {
	steps := int64(1)
	if distanceKm > 0 && p.LogisticsStepKm > 0 {
		steps = int64(math.Ceil(distanceKm / p.LogisticsStepKm))
		if steps < 1 {
			steps = 1
		}
	}
	return p.LogisticsRate.Mul(decimal.NewFromInt(steps))
}

// InsuranceFee is a basis-point surcharge on the goods subtotal.
func (p Pricing) InsuranceFee(goodsSubtotal decimal.Decimal) decimal.Decimal {
	if p.InsuranceRateBps <= 0 {
		return decimal.Zero
	}
	return goodsSubtotal.
		Mul(decimal.NewFromInt(p.InsuranceRateBps)).
		Div(decimal.NewFromInt(10000)).
		Round(2)
}
