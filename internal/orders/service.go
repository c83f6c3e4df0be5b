package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/inventory"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/geo"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/metrics"
	"github.com/aquatrade/aquatrade-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, input CancelOrderInput) error
	ExpirePending(ctx context.Context, ttl time.Duration) (int, error)
}

type service struct {
	repo              Repository
	tx                txRunner
	distance          geo.Resolver
	pricing           Pricing
	defaultDistanceKm float64
	logg              *logger.Logger
	metrics           *metrics.MarketplaceMetrics
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, distance geo.Resolver, pricing Pricing, defaultDistanceKm float64, logg *logger.Logger, market *metrics.MarketplaceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if distance == nil {
		return nil, fmt.Errorf("distance resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:              repo,
		tx:                tx,
		distance:          distance,
		pricing:           pricing,
		defaultDistanceKm: defaultDistanceKm,
		logg:              logg,
		metrics:           market,
	}, nil
}

// Create reserves stock, snapshots prices, and persists the order atomically.
// Pricing is frozen at this moment: later product price changes never touch a
// placed order.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	distanceKm, err := s.resolveDistance(ctx, input)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := repo.FindProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, product := range products {
			byID[product.ID] = product
		}

		lines := make([]inventory.Line, 0, len(input.Items))
		for _, item := range input.Items {
			if _, ok := byID[item.ProductID]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			lines = append(lines, inventory.Line{ProductID: item.ProductID, QtyKg: item.QtyKg})
		}

		if err := inventory.Reserve(ctx, tx, lines); err != nil {
			return err
		}

		goodsSubtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			product := byID[item.ProductID]
			subtotal := product.PricePerKg.Mul(decimal.NewFromInt(int64(item.QtyKg)))
			goodsSubtotal = goodsSubtotal.Add(subtotal)
			items = append(items, models.OrderItem{
				ProductID:  product.ID,
				ProducerID: product.ProducerID,
				QtyKg:      item.QtyKg,
				UnitPrice:  product.PricePerKg,
				Subtotal:   subtotal,
				Note:       item.Note,
			})
		}

		logisticsFee := s.pricing.LogisticsFee(distanceKm)
		insuranceFee := decimal.Zero
		if input.Insured {
			insuranceFee = s.pricing.InsuranceFee(goodsSubtotal)
		}

		order = &models.Order{
			BuyerID:         input.BuyerID,
			Status:          enums.OrderStatusPending,
			GoodsSubtotal:   goodsSubtotal,
			LogisticsFee:    logisticsFee,
			InsuranceFee:    insuranceFee,
			Total:           goodsSubtotal.Add(logisticsFee).Add(insuranceFee),
			DistanceKm:      distanceKm,
			Insured:         input.Insured,
			DeliveryAddress: input.DeliveryAddress,
			DeliveryNote:    input.DeliveryNote,
			Items:           items,
		}
		return repo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(string(enums.OrderStatusPending))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, params)
}

// Cancel moves a PENDING order to CANCELLED and returns its reserved stock.
// The transition is guarded by the current status, so cancelling an order the
// gateway already settled fails instead of clobbering it.
func (s *service) Cancel(ctx context.Context, input CancelOrderInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return err
		}
		if input.ActorID != uuid.Nil && order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}

		return cancelLocked(ctx, tx, repo, order)
	})
}

// ExpirePending cancels PENDING orders older than ttl, one transaction per
// order so a single failure does not poison the sweep.
func (s *service) ExpirePending(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	stale, err := s.repo.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, order := range stale {
		orderID := order.ID
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			locked, err := repo.FindForUpdate(ctx, orderID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if locked.Status != enums.OrderStatusPending {
				return nil
			}
			return cancelLocked(ctx, tx, repo, locked)
		})
		if err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "expiring pending order", err)
			errs = append(errs, fmt.Errorf("order %s: %w", orderID, err))
			continue
		}
		expired++
	}
	return expired, multierr.Combine(errs...)
}

func cancelLocked(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		msg := "order cannot be cancelled"
		if order.Status.IsTerminal() {
			msg = "order already settled or cancelled"
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
			WithDetails(map[string]any{
				"order_id": order.ID,
				"status":   order.Status,
			})
	}

	// The guarded update still backs the table check for writers racing on
	// the same row.
	changed, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled").
			WithDetails(map[string]any{
				"order_id": order.ID,
				"status":   order.Status,
			})
	}

	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, QtyKg: item.QtyKg})
	}
	return inventory.Release(ctx, tx, lines)
}

func (s *service) resolveDistance(ctx context.Context, input CreateOrderInput) (float64, error) {
	if input.DistanceKm != nil {
		return *input.DistanceKm, nil
	}
	if input.Origin != nil && input.Destination != nil {
		km, err := s.distance.DistanceKm(ctx, *input.Origin, *input.Destination)
		if err == nil && km > 0 {
			return km, nil
		}
		if err != nil {
			s.logg.Warn(ctx, "distance resolution failed, using default")
		}
	}
	return s.defaultDistanceKm, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if input.DeliveryAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.QtyKg <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	if input.DistanceKm != nil && *input.DistanceKm <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "distance must be positive")
	}
	return nil
}
