package settlement

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
)

func TestComputeSingleProducer(t *testing.T) {
	t.Parallel()

	producerID := uuid.New()
	haulerID := uuid.New()

	plan, err := Compute(Input{
		OrderID:       uuid.New(),
		GoodsSubtotal: decimal.NewFromInt(500000),
		LogisticsFee:  decimal.NewFromInt(20000),
		PlatformFee:   decimal.NewFromInt(2500),
		HaulerID:      &haulerID,
		ProducerSubtotals: map[uuid.UUID]decimal.Decimal{
			producerID: decimal.NewFromInt(500000),
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if !plan.HaulerAmount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("hauler amount = %s, want 20000", plan.HaulerAmount)
	}
	if len(plan.Producers) != 1 {
		t.Fatalf("producer count = %d", len(plan.Producers))
	}
	if !plan.Producers[0].Amount.Equal(decimal.NewFromInt(497500)) {
		t.Fatalf("producer amount = %s, want 497500", plan.Producers[0].Amount)
	}
	if !plan.ReleaseTotal.Equal(decimal.NewFromInt(517500)) {
		t.Fatalf("release total = %s, want 517500", plan.ReleaseTotal)
	}
}

func TestComputeZeroDrift(t *testing.T) {
	t.Parallel()

	// Three equal producers and a pool that does not divide evenly.
	haulerID := uuid.New()
	subtotals := map[uuid.UUID]decimal.Decimal{
		uuid.New(): decimal.NewFromInt(100000),
		uuid.New(): decimal.NewFromInt(100000),
		uuid.New(): decimal.NewFromInt(100000),
	}

	plan, err := Compute(Input{
		OrderID:           uuid.New(),
		GoodsSubtotal:     decimal.NewFromInt(300000),
		LogisticsFee:      decimal.NewFromInt(10000),
		PlatformFee:       decimal.NewFromInt(2500),
		HaulerID:          &haulerID,
		ProducerSubtotals: subtotals,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	sum := plan.HaulerAmount
	for _, payout := range plan.Producers {
		sum = sum.Add(payout.Amount)
	}
	if !sum.Equal(plan.ReleaseTotal) {
		t.Fatalf("payout sum %s != release total %s", sum, plan.ReleaseTotal)
	}

	// 297500 / 3 = 99166.66..., so the last payee gets the extra cents.
	netPool := decimal.NewFromInt(297500)
	distributed := decimal.Zero
	for _, payout := range plan.Producers {
		distributed = distributed.Add(payout.Amount)
	}
	if !distributed.Equal(netPool) {
		t.Fatalf("distributed %s != net pool %s", distributed, netPool)
	}
}

func TestComputeResidualGoesToLastProducerInIDOrder(t *testing.T) {
	t.Parallel()

	haulerID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	subtotals := map[uuid.UUID]decimal.Decimal{
		ids[0]: decimal.NewFromInt(100),
		ids[1]: decimal.NewFromInt(100),
		ids[2]: decimal.NewFromInt(100),
	}

	plan, err := Compute(Input{
		OrderID:           uuid.New(),
		GoodsSubtotal:     decimal.NewFromInt(300),
		LogisticsFee:      decimal.NewFromInt(10),
		PlatformFee:       decimal.NewFromInt(100),
		HaulerID:          &haulerID,
		ProducerSubtotals: subtotals,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// net pool 200, equal thirds floor to 66.66; residual 0.02 on the last.
	if plan.Producers[0].ProducerID != ids[0] || plan.Producers[2].ProducerID != ids[2] {
		t.Fatalf("payouts not in producer-id order")
	}
	if !plan.Producers[0].Amount.Equal(decimal.RequireFromString("66.66")) {
		t.Fatalf("first payout = %s, want 66.66", plan.Producers[0].Amount)
	}
	if !plan.Producers[1].Amount.Equal(decimal.RequireFromString("66.66")) {
		t.Fatalf("second payout = %s, want 66.66", plan.Producers[1].Amount)
	}
	if !plan.Producers[2].Amount.Equal(decimal.RequireFromString("66.68")) {
		t.Fatalf("last payout = %s, want 66.68", plan.Producers[2].Amount)
	}
}

func TestComputeProportionalSplit(t *testing.T) {
	t.Parallel()

	haulerID := uuid.New()
	bigProducer := uuid.New()
	smallProducer := uuid.New()

	plan, err := Compute(Input{
		OrderID:       uuid.New(),
		GoodsSubtotal: decimal.NewFromInt(400000),
		LogisticsFee:  decimal.NewFromInt(15000),
		PlatformFee:   decimal.NewFromInt(2500),
		HaulerID:      &haulerID,
		ProducerSubtotals: map[uuid.UUID]decimal.Decimal{
			bigProducer:   decimal.NewFromInt(300000),
			smallProducer: decimal.NewFromInt(100000),
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	amounts := map[uuid.UUID]decimal.Decimal{}
	for _, payout := range plan.Producers {
		amounts[payout.ProducerID] = payout.Amount
	}

	// Shares are proportional within a cent of 3:1.
	total := amounts[bigProducer].Add(amounts[smallProducer])
	if !total.Equal(decimal.NewFromInt(397500)) {
		t.Fatalf("distributed %s, want 397500", total)
	}
	ratio := amounts[bigProducer].Div(amounts[smallProducer])
	if ratio.Sub(decimal.NewFromInt(3)).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Fatalf("split ratio %s too far from 3", ratio)
	}
}

func TestComputeNoHaulerKeepsFeeInEscrow(t *testing.T) {
	t.Parallel()

	producerID := uuid.New()
	plan, err := Compute(Input{
		OrderID:       uuid.New(),
		GoodsSubtotal: decimal.NewFromInt(100000),
		LogisticsFee:  decimal.NewFromInt(10000),
		PlatformFee:   decimal.NewFromInt(2500),
		ProducerSubtotals: map[uuid.UUID]decimal.Decimal{
			producerID: decimal.NewFromInt(100000),
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if !plan.HaulerAmount.IsZero() {
		t.Fatalf("hauler amount = %s, want 0", plan.HaulerAmount)
	}
	if !plan.ReleaseTotal.Equal(decimal.NewFromInt(97500)) {
		t.Fatalf("release total = %s, want 97500", plan.ReleaseTotal)
	}
}

func TestComputeRejectsMismatchedSubtotals(t *testing.T) {
	t.Parallel()

	_, err := Compute(Input{
		OrderID:       uuid.New(),
		GoodsSubtotal: decimal.NewFromInt(100000),
		LogisticsFee:  decimal.NewFromInt(10000),
		PlatformFee:   decimal.NewFromInt(2500),
		ProducerSubtotals: map[uuid.UUID]decimal.Decimal{
			uuid.New(): decimal.NewFromInt(90000),
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestComputeRejectsFeeSwallowingPool(t *testing.T) {
	t.Parallel()

	_, err := Compute(Input{
		OrderID:       uuid.New(),
		GoodsSubtotal: decimal.NewFromInt(2000),
		LogisticsFee:  decimal.NewFromInt(10000),
		PlatformFee:   decimal.NewFromInt(2500),
		ProducerSubtotals: map[uuid.UUID]decimal.Decimal{
			uuid.New(): decimal.NewFromInt(2000),
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
