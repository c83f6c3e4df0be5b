package settlement

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
)

// Input describes one paid order awaiting settlement. ProducerSubtotals are
// the per-producer goods subtotals snapshotted on the order items.
type Input struct {
	OrderID           uuid.UUID
	GoodsSubtotal     decimal.Decimal
	LogisticsFee      decimal.Decimal
	PlatformFee       decimal.Decimal
	HaulerID          *uuid.UUID
	ProducerSubtotals map[uuid.UUID]decimal.Decimal
}

// Payout is one producer's share of the net pool.
type Payout struct {
	ProducerID uuid.UUID
	Amount     decimal.Decimal
}

// Plan is the complete money split for one order. The invariant is exact:
// HaulerAmount + sum(Producers) == ReleaseTotal, with no residual left behind.
type Plan struct {
	OrderID      uuid.UUID
	HaulerID     *uuid.UUID
	HaulerAmount decimal.Decimal
	Producers    []Payout
	PlatformFee  decimal.Decimal
	ReleaseTotal decimal.Decimal
}

// Compute splits an order's escrow into payouts. Producers share the net pool
// (goods subtotal minus platform fee) proportionally to their subtotals; the
// rounding residual lands on the last producer in id order. The logistics fee
// goes to the hauler, or stays in escrow when no hauler was assigned.
func Compute(input Input) (*Plan, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.GoodsSubtotal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "goods subtotal must be positive")
	}
	if input.LogisticsFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logistics fee cannot be negative")
	}
	if input.PlatformFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform fee cannot be negative")
	}
	if len(input.ProducerSubtotals) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one producer subtotal is required")
	}

	subtotalSum := decimal.Zero
	producerIDs := make([]uuid.UUID, 0, len(input.ProducerSubtotals))
	for producerID, subtotal := range input.ProducerSubtotals {
		if producerID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id is required")
		}
		if !subtotal.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("producer %s subtotal must be positive", producerID))
		}
		subtotalSum = subtotalSum.Add(subtotal)
		producerIDs = append(producerIDs, producerID)
	}
	if !subtotalSum.Equal(input.GoodsSubtotal) {
		return nil, pkgerrors.New(pkgerrors.CodeIntegrity, "producer subtotals do not sum to goods subtotal").
			WithDetails(map[string]any{
				"order_id":       input.OrderID,
				"goods_subtotal": input.GoodsSubtotal.String(),
				"subtotal_sum":   subtotalSum.String(),
			})
	}

	netPool := input.GoodsSubtotal.Sub(input.PlatformFee)
	if !netPool.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform fee exceeds goods subtotal")
	}

	sort.Slice(producerIDs, func(i, j int) bool {
		return bytes.Compare(producerIDs[i][:], producerIDs[j][:]) < 0
	})

	payouts := make([]Payout, 0, len(producerIDs))
	distributed := decimal.Zero
	for i, producerID := range producerIDs {
		subtotal := input.ProducerSubtotals[producerID]

		var amount decimal.Decimal
		if i == len(producerIDs)-1 {
			// Last payee absorbs the rounding residual.
			amount = netPool.Sub(distributed)
		} else {
			amount = netPool.Mul(subtotal).Div(input.GoodsSubtotal).RoundFloor(2)
		}
		distributed = distributed.Add(amount)
		payouts = append(payouts, Payout{ProducerID: producerID, Amount: amount})
	}

	haulerAmount := decimal.Zero
	if input.HaulerID != nil && input.LogisticsFee.IsPositive() {
		haulerAmount = input.LogisticsFee
	}

	return &Plan{
		OrderID:      input.OrderID,
		HaulerID:     input.HaulerID,
		HaulerAmount: haulerAmount,
		Producers:    payouts,
		PlatformFee:  input.PlatformFee,
		ReleaseTotal: haulerAmount.Add(netPool),
	}, nil
}
