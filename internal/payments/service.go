package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/deliveries"
	"github.com/aquatrade/aquatrade-backend/internal/inventory"
	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/internal/orders"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/metrics"
	"github.com/aquatrade/aquatrade-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service ingests gateway notifications. A settled event captures the buyer's
// money into escrow and mints the delivery; any other terminal event voids
// the order and releases its stock.
type Service interface {
	HandleNotification(ctx context.Context, notification Notification) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error)
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo           Repository
	OrdersRepo     orders.Repository
	DeliveriesRepo deliveries.Repository
	Ledger         ledger.Service
	Tokens         security.TokenGenerator
	Guard          *IdempotencyGuard
	Tx             txRunner
	Logger         *logger.Logger
	Metrics        *metrics.MarketplaceMetrics
}

type service struct {
	repo           Repository
	ordersRepo     orders.Repository
	deliveriesRepo deliveries.Repository
	ledger         ledger.Service
	tokens         security.TokenGenerator
	guard          *IdempotencyGuard
	tx             txRunner
	logg           *logger.Logger
	market         *metrics.MarketplaceMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DeliveriesRepo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token generator required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:           params.Repo,
		ordersRepo:     params.OrdersRepo,
		deliveriesRepo: params.DeliveriesRepo,
		ledger:         params.Ledger,
		tokens:         params.Tokens,
		guard:          params.Guard,
		tx:             params.Tx,
		logg:           params.Logger,
		market:         params.Metrics,
	}, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

// HandleNotification processes one gateway event. Replays are absorbed at
// three layers: the redis guard, the already-terminal order status, and the
// ledger reference column.
func (s *service) HandleNotification(ctx context.Context, notification Notification) error {
	status, err := s.validate(notification)
	if err != nil {
		return err
	}

	ctx = s.logg.WithOrderID(ctx, notification.OrderID.String())

	if s.guard != nil {
		duplicate, err := s.guard.CheckAndMark(ctx, notification.GatewayRef)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		if duplicate {
			s.logg.Info(ctx, "duplicate payment notification skipped")
			return nil
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		order, err := ordersRepo.FindForUpdate(ctx, notification.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		log := &models.PaymentLog{
			OrderID:     order.ID,
			GatewayRef:  notification.GatewayRef,
			EventStatus: status,
			GrossAmount: notification.GrossAmount,
			RawPayload:  notification.RawPayload,
			PaidAt:      notification.PaidAt,
		}
		if err := s.repo.WithTx(tx).CreateLog(ctx, log); err != nil {
			return fmt.Errorf("record payment log: %w", err)
		}

		if status.IsSettlement() {
			return s.settle(ctx, tx, ordersRepo, order, notification)
		}
		return s.void(ctx, tx, ordersRepo, order, status)
	})
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, notification.GatewayRef); delErr != nil {
				s.logg.Error(ctx, "release idempotency key", delErr)
			}
		}
		return err
	}

	if status.IsSettlement() && s.market != nil {
		s.market.IncPaymentSettled()
	}
	return nil
}

func (s *service) validate(notification Notification) (enums.PaymentEventStatus, error) {
	if notification.OrderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if notification.GatewayRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "gateway reference is required")
	}
	status, err := enums.ParsePaymentEventStatus(notification.Status)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payment event status").
			WithDetails(map[string]any{"status": notification.Status})
	}
	if status.IsSettlement() && !notification.GrossAmount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "gross amount must be positive")
	}
	return status, nil
}

// settle captures payment: order goes PAID, the full total lands in escrow,
// and the delivery row with its two scan tokens is created.
func (s *service) settle(ctx context.Context, tx *gorm.DB, ordersRepo orders.Repository, order *models.Order, notification Notification) error {
	if order.Status != enums.OrderStatusPending {
		if order.Status == enums.OrderStatusPaid {
			s.logg.Info(ctx, "order already paid, settlement replayed")
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	if !notification.GrossAmount.Equal(order.Total) {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "gross amount does not match order total").
			WithDetails(map[string]any{
				"gross": notification.GrossAmount.String(),
				"total": order.Total.String(),
			})
	}

	changed, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid)
	if err != nil {
		return err
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state concurrently")
	}

	if _, err := s.ledger.WithTx(tx).Credit(ctx, ledger.ApplyInput{
		OwnerType: enums.WalletOwnerPlatform,
		Amount:    order.Total,
		Source:    enums.LedgerSourceOrder,
		Reference: "ORDER-" + order.ID.String(),
	}); err != nil {
		return fmt.Errorf("credit escrow: %w", err)
	}

	delivery, err := deliveries.Build(order, s.tokens)
	if err != nil {
		return err
	}
	if err := s.deliveriesRepo.WithTx(tx).Create(ctx, delivery); err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}

	s.logg.Info(ctx, "payment settled, escrow funded")
	return nil
}

// void cancels an unpaid order and returns its stock.
func (s *service) void(ctx context.Context, tx *gorm.DB, ordersRepo orders.Repository, order *models.Order, status enums.PaymentEventStatus) error {
	if order.Status != enums.OrderStatusPending {
		if order.Status == enums.OrderStatusCancelled {
			s.logg.Info(ctx, "order already cancelled, void replayed")
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot void an order past payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	changed, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state concurrently")
	}

	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, QtyKg: item.QtyKg})
	}
	if err := inventory.Release(ctx, tx, lines); err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	s.logg.Info(ctx, "order voided by gateway event: "+string(status))
	return nil
}
