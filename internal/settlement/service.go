package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/metrics"
)

// Service turns a settlement plan into ledger entries.
type Service interface {
	PlanFromOrder(order *models.Order, delivery *models.Delivery) (*Plan, error)
	Apply(ctx context.Context, tx *gorm.DB, plan *Plan) error
}

type service struct {
	ledger      ledger.Service
	platformFee decimal.Decimal
	logg        *logger.Logger
	metrics     *metrics.MarketplaceMetrics
}

// NewService wires the settlement service. platformFee is the flat fee
// retained by the platform on every settled order.
func NewService(ledgerSvc ledger.Service, platformFee decimal.Decimal, logg *logger.Logger, market *metrics.MarketplaceMetrics) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if platformFee.IsNegative() {
		return nil, fmt.Errorf("platform fee cannot be negative")
	}
	return &service{ledger: ledgerSvc, platformFee: platformFee, logg: logg, metrics: market}, nil
}

// PlanFromOrder builds the payout plan from order items and the delivery row.
func (s *service) PlanFromOrder(order *models.Order, delivery *models.Delivery) (*Plan, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	if delivery == nil {
		return nil, fmt.Errorf("delivery required")
	}

	subtotals := make(map[uuid.UUID]decimal.Decimal, len(order.Items))
	for _, item := range order.Items {
		subtotals[item.ProducerID] = subtotals[item.ProducerID].Add(item.Subtotal)
	}

	return Compute(Input{
		OrderID:           order.ID,
		GoodsSubtotal:     order.GoodsSubtotal,
		LogisticsFee:      order.LogisticsFee,
		PlatformFee:       s.platformFee,
		HaulerID:          delivery.HaulerID,
		ProducerSubtotals: subtotals,
	})
}

// Apply releases escrow per the plan. Every ledger reference is derived from
// the order id, so re-applying a plan is a no-op.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("plan required")
	}
	led := s.ledger.WithTx(tx)

	if _, err := led.Debit(ctx, ledger.ApplyInput{
		OwnerType: enums.WalletOwnerPlatform,
		OwnerID:   uuid.Nil,
		Amount:    plan.ReleaseTotal,
		Source:    enums.LedgerSourceRelease,
		Reference: fmt.Sprintf("RELEASE-%s", plan.OrderID),
	}); err != nil {
		return fmt.Errorf("release escrow: %w", err)
	}

	if plan.HaulerAmount.IsPositive() && plan.HaulerID != nil {
		if _, err := led.Credit(ctx, ledger.ApplyInput{
			OwnerType: enums.WalletOwnerHauler,
			OwnerID:   *plan.HaulerID,
			Amount:    plan.HaulerAmount,
			Source:    enums.LedgerSourceLogisticFee,
			Reference: fmt.Sprintf("LOGFEE-%s", plan.OrderID),
		}); err != nil {
			return fmt.Errorf("credit hauler: %w", err)
		}
	} else {
		s.logg.Warn(s.logg.WithOrderID(ctx, plan.OrderID.String()), "no hauler assigned, logistics fee stays in escrow")
	}

	for _, payout := range plan.Producers {
		if _, err := led.Credit(ctx, ledger.ApplyInput{
			OwnerType: enums.WalletOwnerProducer,
			OwnerID:   payout.ProducerID,
			Amount:    payout.Amount,
			Source:    enums.LedgerSourceOrder,
			Reference: fmt.Sprintf("ORDER-%s-PRODUCER-%s", plan.OrderID, payout.ProducerID),
		}); err != nil {
			return fmt.Errorf("credit producer %s: %w", payout.ProducerID, err)
		}
	}

	s.metrics.AddSettlementAmount(plan.ReleaseTotal)
	return nil
}
