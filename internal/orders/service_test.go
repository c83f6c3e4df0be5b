package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/geo"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/pagination"
)

func newTestEnv(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	pricing := Pricing{
		LogisticsRate:    decimal.NewFromInt(10000),
		LogisticsStepKm:  5,
		InsuranceRateBps: 100,
	}
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn), geo.HaversineResolver{}, pricing, 10, logg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, pricePerKg int64, stockKg int) *models.Product {
	t.Helper()
	product := &models.Product{
		BatchID:    uuid.New(),
		ProducerID: uuid.New(),
		Species:    "vannamei",
		Grade:      "A",
		PricePerKg: decimal.NewFromInt(pricePerKg),
		StockKg:    stockKg,
		Status:     enums.ProductStatusAvailable,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func floatPtr(f float64) *float64 { return &f }

func TestCreateOrderFreezesPricing(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 20)

	order, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         uuid.New(),
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 10}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(8),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 10kg * 50000 = 500000 goods; 8km over 5km steps = 2 steps * 10000.
	if !order.GoodsSubtotal.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("goods subtotal = %s, want 500000", order.GoodsSubtotal)
	}
	if !order.LogisticsFee.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("logistics fee = %s, want 20000", order.LogisticsFee)
	}
	if !order.Total.Equal(decimal.NewFromInt(520000)) {
		t.Fatalf("total = %s, want 520000", order.Total)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", order.Status)
	}

	// Stock was reserved at creation.
	var got models.Product
	if err := conn.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.StockKg != 10 {
		t.Fatalf("stock = %d, want 10", got.StockKg)
	}

	// Price change after the fact does not touch the snapshot.
	if err := conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price_per_kg", decimal.NewFromInt(99999)).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}
	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("snapshot price = %s, want 50000", reloaded.Items[0].UnitPrice)
	}
}

func TestCreateOrderInsurance(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 20)

	order, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         uuid.New(),
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 10}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		Insured:         true,
		DistanceKm:      floatPtr(4),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 1% of 500000.
	if !order.InsuranceFee.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("insurance fee = %s, want 5000", order.InsuranceFee)
	}
	if !order.Total.Equal(decimal.NewFromInt(515000)) {
		t.Fatalf("total = %s, want 515000", order.Total)
	}
}

func TestCreateOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 5)

	_, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         uuid.New(),
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 8}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var orderCount int64
	if err := conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders, got %d", orderCount)
	}

	var got models.Product
	if err := conn.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.StockKg != 5 {
		t.Fatalf("stock = %d, want 5", got.StockKg)
	}
}

func TestCancelReleasesStock(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 10)
	buyerID := uuid.New()

	order, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         buyerID,
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 10}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(ctx, CancelOrderInput{OrderID: order.ID, ActorID: buyerID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", reloaded.Status)
	}

	var got models.Product
	if err := conn.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.StockKg != 10 || got.Status != enums.ProductStatusAvailable {
		t.Fatalf("expected stock restored, got stock=%d status=%s", got.StockKg, got.Status)
	}
}

func TestCancelWrongBuyerForbidden(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 10)

	order, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         uuid.New(),
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 2}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Cancel(ctx, CancelOrderInput{OrderID: order.ID, ActorID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelNonPendingConflicts(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 10)
	buyerID := uuid.New()

	order, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         buyerID,
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 2}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := conn.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusPaid).Error; err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	err = svc.Cancel(ctx, CancelOrderInput{OrderID: order.ID, ActorID: buyerID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestExpirePendingCancelsOnlyStaleOrders(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 50000, 20)
	buyerID := uuid.New()

	stale, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         buyerID,
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 5}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	fresh, err := svc.Create(ctx, CreateOrderInput{
		BuyerID:         buyerID,
		Items:           []ItemInput{{ProductID: product.ID, QtyKg: 5}},
		DeliveryAddress: "Jl. Pelabuhan 1",
		DistanceKm:      floatPtr(3),
	})
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	// Age the first order past the TTL.
	if err := conn.Model(&models.Order{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error; err != nil {
		t.Fatalf("age order: %v", err)
	}

	expired, err := svc.ExpirePending(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	staleReloaded, err := svc.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if staleReloaded.Status != enums.OrderStatusCancelled {
		t.Fatalf("stale status = %s, want CANCELLED", staleReloaded.Status)
	}

	freshReloaded, err := svc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if freshReloaded.Status != enums.OrderStatusPending {
		t.Fatalf("fresh status = %s, want PENDING", freshReloaded.Status)
	}

	// Only the stale order's stock came back.
	var got models.Product
	if err := conn.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.StockKg != 15 {
		t.Fatalf("stock = %d, want 15", got.StockKg)
	}
}

func TestListByBuyerPaginates(t *testing.T) {
	t.Parallel()

	svc, conn := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 1000, 1000)
	buyerID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, CreateOrderInput{
			BuyerID:         buyerID,
			Items:           []ItemInput{{ProductID: product.ID, QtyKg: 1}},
			DeliveryAddress: "Jl. Pelabuhan 1",
			DistanceKm:      floatPtr(3),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := svc.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Orders) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Orders))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	rest, err := svc.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest.Orders) != 1 {
		t.Fatalf("second page size = %d, want 1", len(rest.Orders))
	}
}

func TestOrderStatusTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := map[enums.OrderStatus][]enums.OrderStatus{
		enums.OrderStatusPending:   {enums.OrderStatusPaid, enums.OrderStatusCancelled},
		enums.OrderStatusPaid:      {enums.OrderStatusShipped},
		enums.OrderStatusShipped:   {enums.OrderStatusCompleted},
		enums.OrderStatusCompleted: {},
		enums.OrderStatusCancelled: {},
	}

	all := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusPaid,
		enums.OrderStatusShipped,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	}

	for from, targets := range allowed {
		permitted := map[enums.OrderStatus]bool{}
		for _, to := range targets {
			permitted[to] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != permitted[to] {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, permitted[to])
			}
		}
		if got := from.IsTerminal(); got != (len(targets) == 0) {
			t.Errorf("%s terminal = %v, want %v", from, got, len(targets) == 0)
		}
	}
}
