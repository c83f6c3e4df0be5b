package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

// CreateInput carries the attributes of a new sellable lot cut from a batch.
type CreateInput struct {
	ProducerID uuid.UUID       `validate:"required"`
	BatchID    uuid.UUID       `validate:"required"`
	Species    string          `validate:"required"`
	Grade      string          `validate:"required"`
	PricePerKg decimal.Decimal `validate:"required"`
	StockKg    int             `validate:"gt=0"`
}

// Service manages the producer-facing product catalog. Stock mutation stays
// with the inventory reservation protocol; this service only creates, lists
// and archives lots.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListAvailable(ctx context.Context, species string) ([]models.Product, error)
	ListByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Product, error)
	Archive(ctx context.Context, productID, producerID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Create lists a lot for sale. The batch must exist and its farm must belong
// to the calling producer, so every product stays traceable to a provenance
// chain the seller controls.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	batch, err := s.repo.FindBatch(ctx, input.BatchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	if err != nil {
		return nil, err
	}

	farm, err := s.repo.FindFarm(ctx, batch.FarmID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farm not found")
	}
	if err != nil {
		return nil, err
	}
	if farm.ProducerID != input.ProducerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "batch belongs to another producer")
	}

	product := &models.Product{
		BatchID:    input.BatchID,
		ProducerID: input.ProducerID,
		Species:    input.Species,
		Grade:      input.Grade,
		PricePerKg: input.PricePerKg,
		StockKg:    input.StockKg,
		Status:     enums.ProductStatusAvailable,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product listed")
	return product, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.Find(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) ListAvailable(ctx context.Context, species string) ([]models.Product, error) {
	return s.repo.ListAvailable(ctx, species)
}

func (s *service) ListByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Product, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id is required")
	}
	return s.repo.ListByProducer(ctx, producerID)
}

// Archive takes a lot off the market. Open orders keep their reservations;
// released stock on an archived lot stays archived.
func (s *service) Archive(ctx context.Context, productID, producerID uuid.UUID) error {
	if productID == uuid.Nil || producerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id and producer id are required")
	}

	changed, err := s.repo.Archive(ctx, productID, producerID)
	if err != nil {
		return err
	}
	if changed {
		s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product archived")
		return nil
	}

	// The guard rejected the update; load the row to name the reason.
	product, err := s.repo.Find(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return err
	}
	if product.ProducerID != producerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another producer")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "product already archived")
}

func (s *service) validateCreate(input CreateInput) error {
	if input.ProducerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "producer id is required")
	}
	if input.BatchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}
	if input.Species == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "species is required")
	}
	if input.Grade == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "grade is required")
	}
	if !input.PricePerKg.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price per kg must be positive")
	}
	if input.StockKg <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be positive")
	}
	return nil
}
