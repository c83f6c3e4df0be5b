package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/orders"
	"github.com/aquatrade/aquatrade-backend/internal/settlement"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// QRKind distinguishes the two scannable codes on a delivery.
type QRKind string

const (
	QRKindPickup  QRKind = "pickup"
	QRKindReceive QRKind = "receive"
)

// QRPayload is the content encoded into a scannable code.
type QRPayload struct {
	DeliveryID uuid.UUID `json:"delivery_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Kind       QRKind    `json:"kind"`
	Token      string    `json:"token"`
}

// Service drives the delivery lifecycle. Each scan consumes its token: the
// pickup scan ships the order, the receive scan completes it and settles the
// escrow, all inside one transaction.
type Service interface {
	Get(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	ListByHauler(ctx context.Context, haulerID uuid.UUID) ([]models.Delivery, error)
	Assign(ctx context.Context, deliveryID, haulerID uuid.UUID) error
	ScanPickup(ctx context.Context, token string, haulerID uuid.UUID) (*models.Delivery, error)
	ScanReceive(ctx context.Context, token string, buyerID uuid.UUID) (*models.Delivery, error)
	QRPayloads(delivery *models.Delivery) (pickup, receive QRPayload)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	settle     settlement.Service
	tx         txRunner
	notify     Notifier
	logg       *logger.Logger
}

// NewService builds the delivery service with the required dependencies.
// Pass a nil notifier to discard lifecycle events.
func NewService(repo Repository, ordersRepo orders.Repository, settle settlement.Service, tx txRunner, notify Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if settle == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if notify == nil {
		notify = NoopNotifier{}
	}
	return &service{repo: repo, ordersRepo: ordersRepo, settle: settle, tx: tx, notify: notify, logg: logg}, nil
}

// Build mints a delivery row for a freshly paid order, including both
// single-use tokens.
func Build(order *models.Order, gen security.TokenGenerator) (*models.Delivery, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	if gen == nil {
		return nil, fmt.Errorf("token generator required")
	}

	pickupToken, err := gen.NewToken()
	if err != nil {
		return nil, fmt.Errorf("mint pickup token: %w", err)
	}
	deliveryToken, err := gen.NewToken()
	if err != nil {
		return nil, fmt.Errorf("mint delivery token: %w", err)
	}

	return &models.Delivery{
		OrderID:       order.ID,
		Status:        enums.DeliveryStatusPending,
		DistanceKm:    order.DistanceKm,
		Fee:           order.LogisticsFee,
		PickupToken:   pickupToken,
		DeliveryToken: deliveryToken,
	}, nil
}

func (s *service) Get(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	delivery, err := s.repo.Find(ctx, deliveryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	delivery, err := s.repo.FindByOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *service) ListByHauler(ctx context.Context, haulerID uuid.UUID) ([]models.Delivery, error) {
	if haulerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hauler id is required")
	}
	return s.repo.ListByHauler(ctx, haulerID)
}

// Assign attaches a hauler to an unclaimed delivery.
func (s *service) Assign(ctx context.Context, deliveryID, haulerID uuid.UUID) error {
	if deliveryID == uuid.Nil || haulerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id and hauler id are required")
	}
	changed, err := s.repo.Assign(ctx, deliveryID, haulerID)
	if err != nil {
		return err
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already assigned or in progress")
	}
	return nil
}

// ScanPickup consumes the pickup token: the delivery moves to PICKED_UP and
// the order ships. An unassigned delivery is claimed by the scanning hauler.
func (s *service) ScanPickup(ctx context.Context, token string, haulerID uuid.UUID) (*models.Delivery, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	var out *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		delivery, err := repo.FindByPickupTokenForUpdate(ctx, token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown pickup token")
		}
		if err != nil {
			return err
		}
		// A case-insensitive column collation could match a token the caller
		// never held. Recompare byte for byte, in constant time.
		if !security.TokensEqual(delivery.PickupToken, token) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown pickup token")
		}

		if !delivery.Status.CanTransitionTo(enums.DeliveryStatusPickedUp) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup token already used")
		}

		from := delivery.Status
		if delivery.HaulerID == nil {
			if haulerID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "hauler id is required for unassigned delivery")
			}
			changed, err := repo.Assign(ctx, delivery.ID, haulerID)
			if err != nil {
				return err
			}
			if !changed {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery claimed concurrently")
			}
			delivery.HaulerID = &haulerID
			from = enums.DeliveryStatusAssigned
		} else if haulerID != uuid.Nil && *delivery.HaulerID != haulerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery assigned to another hauler")
		}

		now := time.Now()
		changed, err := repo.MarkPickedUp(ctx, delivery.ID, from, now)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup token already used")
		}

		shipped, err := ordersRepo.UpdateStatus(ctx, delivery.OrderID, enums.OrderStatusPaid, enums.OrderStatusShipped)
		if err != nil {
			return err
		}
		if !shipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting pickup")
		}

		delivery.Status = enums.DeliveryStatusPickedUp
		delivery.PickedUpAt = &now
		out = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, out.OrderID.String()), "delivery picked up")
	s.notify.DeliveryPickedUp(ctx, out)
	return out, nil
}

// ScanReceive consumes the delivery token: the delivery completes, the order
// completes, and escrow is settled to the payees atomically.
func (s *service) ScanReceive(ctx context.Context, token string, buyerID uuid.UUID) (*models.Delivery, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	var out *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		delivery, err := repo.FindByDeliveryTokenForUpdate(ctx, token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown delivery token")
		}
		if err != nil {
			return err
		}
		if !security.TokensEqual(delivery.DeliveryToken, token) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown delivery token")
		}

		if !delivery.Status.CanTransitionTo(enums.DeliveryStatusDelivered) {
			if delivery.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery token already used")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has not been picked up")
		}

		order, err := ordersRepo.FindForUpdate(ctx, delivery.OrderID)
		if err != nil {
			return err
		}
		if buyerID != uuid.Nil && order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}

		now := time.Now()
		changed, err := repo.MarkDelivered(ctx, delivery.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery token already used")
		}

		completed, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped, enums.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !completed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in transit")
		}

		plan, err := s.settle.PlanFromOrder(order, delivery)
		if err != nil {
			return err
		}
		if err := s.settle.Apply(ctx, tx, plan); err != nil {
			return err
		}

		delivery.Status = enums.DeliveryStatusDelivered
		delivery.DeliveredAt = &now
		out = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, out.OrderID.String()), "delivery completed and settled")
	s.notify.DeliveryCompleted(ctx, out)
	return out, nil
}

// QRPayloads renders both scannable codes for a delivery.
func (s *service) QRPayloads(delivery *models.Delivery) (QRPayload, QRPayload) {
	pickup := QRPayload{
		DeliveryID: delivery.ID,
		OrderID:    delivery.OrderID,
		Kind:       QRKindPickup,
		Token:      delivery.PickupToken,
	}
	receive := QRPayload{
		DeliveryID: delivery.ID,
		OrderID:    delivery.OrderID,
		Kind:       QRKindReceive,
		Token:      delivery.DeliveryToken,
	}
	return pickup, receive
}
