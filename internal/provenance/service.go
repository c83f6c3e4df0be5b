package provenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateFarmInput carries the attributes of a new production site.
type CreateFarmInput struct {
	ProducerID uuid.UUID `validate:"required"`
	Name       string    `validate:"required"`
	Location   string
	Latitude   *float64
	Longitude  *float64
	AreaM2     int `validate:"gte=0"`
}

// AppendInput carries the attributes of a new production batch.
type AppendInput struct {
	FarmID           uuid.UUID `validate:"required"`
	BatchCode        string    `validate:"required"`
	StockedDate      time.Time `validate:"required"`
	SeedAgeDays      int       `validate:"gte=0"`
	SeedOrigin       string    `validate:"required"`
	WaterPH          float64
	WaterSalinity    float64
	EstimatedYieldKg int `validate:"gte=0"`
	Notes            *string
}

// BatchAudit is the outcome of re-deriving one batch's hash.
type BatchAudit struct {
	BatchID      uuid.UUID `json:"batch_id"`
	StoredHash   string    `json:"stored_hash"`
	ComputedHash string    `json:"computed_hash"`
	Valid        bool      `json:"valid"`
}

// ChainBreak pinpoints one broken link in a farm chain.
type ChainBreak struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Kind     string    `json:"kind"` // "hash_mismatch" or "link_broken"
	Expected string    `json:"expected"`
	Actual   string    `json:"actual"`
}

// ChainReport is the outcome of walking a farm's full chain.
type ChainReport struct {
	FarmID uuid.UUID    `json:"farm_id"`
	Length int          `json:"length"`
	Breaks []ChainBreak `json:"breaks"`
	Valid  bool         `json:"valid"`
}

// Service maintains the per-farm hash chain over production batches.
// Verification reports tampering as data; it never blocks reads.
type Service interface {
	CreateFarm(ctx context.Context, input CreateFarmInput) (*models.Farm, error)
	GetFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	ListFarms(ctx context.Context, producerID uuid.UUID) ([]models.Farm, error)
	AppendBatch(ctx context.Context, input AppendInput) (*models.Batch, error)
	RecordHarvest(ctx context.Context, batchID uuid.UUID, harvestDate time.Time) (*models.Batch, error)
	Get(ctx context.Context, batchID uuid.UUID) (*models.Batch, error)
	VerifyBatch(ctx context.Context, batchID uuid.UUID) (*BatchAudit, error)
	VerifyChain(ctx context.Context, farmID uuid.UUID) (*ChainReport, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]models.Batch, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	logg   *logger.Logger
	market *metrics.MarketplaceMetrics
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger, market *metrics.MarketplaceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("provenance repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, market: market}, nil
}

// CreateFarm registers a production site for a producer. Its chain starts
// empty; the first appended batch links to the genesis sentinel.
func (s *service) CreateFarm(ctx context.Context, input CreateFarmInput) (*models.Farm, error) {
	if input.ProducerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm name is required")
	}
	if input.AreaM2 < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm area cannot be negative")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be set together")
	}

	farm := &models.Farm{
		ProducerID: input.ProducerID,
		Name:       input.Name,
		Location:   input.Location,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		AreaM2:     input.AreaM2,
	}
	if err := s.repo.CreateFarm(ctx, farm); err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "farm_id", farm.ID.String()), "farm registered")
	return farm, nil
}

func (s *service) GetFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	if farmID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm id is required")
	}
	farm, err := s.repo.FindFarm(ctx, farmID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farm not found")
	}
	if err != nil {
		return nil, err
	}
	return farm, nil
}

func (s *service) ListFarms(ctx context.Context, producerID uuid.UUID) ([]models.Farm, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id is required")
	}
	return s.repo.ListFarmsByProducer(ctx, producerID)
}

// AppendBatch links a new batch to the farm's chain head, or to the genesis
// sentinel when the chain is empty. The farm row lock is taken before the
// head lookup: with an empty chain there is no batch row to lock, so without
// it two concurrent first appends would both link to genesis and fork the
// chain.
func (s *service) AppendBatch(ctx context.Context, input AppendInput) (*models.Batch, error) {
	if err := s.validateAppend(input); err != nil {
		return nil, err
	}

	var out *models.Batch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindFarmForUpdate(ctx, input.FarmID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "farm not found")
			}
			return err
		}

		head, err := repo.FindLatestByFarm(ctx, input.FarmID)
		if err != nil {
			return err
		}
		previousHash := GenesisHash
		if head != nil {
			previousHash = head.CurrentHash
		}

		batch := &models.Batch{
			FarmID:           input.FarmID,
			BatchCode:        input.BatchCode,
			StockedDate:      input.StockedDate,
			SeedAgeDays:      input.SeedAgeDays,
			SeedOrigin:       input.SeedOrigin,
			WaterPH:          input.WaterPH,
			WaterSalinity:    input.WaterSalinity,
			EstimatedYieldKg: input.EstimatedYieldKg,
			Notes:            input.Notes,
			Status:           enums.BatchStatusActive,
			PreviousHash:     previousHash,
		}
		batch.CurrentHash = ComputeHash(fieldsOf(batch), previousHash)

		if err := repo.Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "batch_id", out.ID.String()), "batch appended to chain")
	return out, nil
}

// RecordHarvest sets the harvest date and recomputes the stored hash in
// place. The chain links of later batches are not rewritten; a harvest
// recorded after a successor was appended will surface as a chain break,
// which is the tamper-evidence working as intended.
func (s *service) RecordHarvest(ctx context.Context, batchID uuid.UUID, harvestDate time.Time) (*models.Batch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}
	if harvestDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "harvest date is required")
	}

	var out *models.Batch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		batch, err := repo.FindForUpdate(ctx, batchID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		if err != nil {
			return err
		}
		if batch.Status != enums.BatchStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch is not active").
				WithDetails(map[string]any{"status": batch.Status})
		}
		if harvestDate.Before(batch.StockedDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "harvest date precedes stocked date")
		}

		batch.HarvestDate = &harvestDate
		batch.Status = enums.BatchStatusHarvested
		batch.CurrentHash = ComputeHash(fieldsOf(batch), batch.PreviousHash)

		if err := repo.UpdateHashedFields(ctx, batch); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "batch_id", batchID.String()), "harvest recorded, hash recomputed")
	return out, nil
}

func (s *service) Get(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	batch, err := s.repo.Find(ctx, batchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// VerifyBatch re-derives the hash from stored fields and compares it to the
// stored value.
func (s *service) VerifyBatch(ctx context.Context, batchID uuid.UUID) (*BatchAudit, error) {
	batch, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	computed := ComputeHash(fieldsOf(batch), batch.PreviousHash)
	audit := &BatchAudit{
		BatchID:      batch.ID,
		StoredHash:   batch.CurrentHash,
		ComputedHash: computed,
		Valid:        computed == batch.CurrentHash,
	}
	if !audit.Valid {
		s.logg.Warn(s.logg.WithField(ctx, "batch_id", batchID.String()), "batch hash mismatch, data tampered")
	}
	return audit, nil
}

// VerifyChain walks a farm's batches in creation order, checking each stored
// hash and each previous-hash link.
func (s *service) VerifyChain(ctx context.Context, farmID uuid.UUID) (*ChainReport, error) {
	if farmID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm id is required")
	}

	batches, err := s.repo.ListByFarmChronological(ctx, farmID)
	if err != nil {
		return nil, err
	}

	report := &ChainReport{FarmID: farmID, Length: len(batches)}
	expectedPrevious := GenesisHash
	for i := range batches {
		batch := &batches[i]

		if batch.PreviousHash != expectedPrevious {
			report.Breaks = append(report.Breaks, ChainBreak{
				BatchID:  batch.ID,
				Kind:     "link_broken",
				Expected: expectedPrevious,
				Actual:   batch.PreviousHash,
			})
		}
		if computed := ComputeHash(fieldsOf(batch), batch.PreviousHash); computed != batch.CurrentHash {
			report.Breaks = append(report.Breaks, ChainBreak{
				BatchID:  batch.ID,
				Kind:     "hash_mismatch",
				Expected: computed,
				Actual:   batch.CurrentHash,
			})
		}
		expectedPrevious = batch.CurrentHash
	}

	report.Valid = len(report.Breaks) == 0
	if !report.Valid {
		s.logg.Warn(s.logg.WithField(ctx, "farm_id", farmID.String()), "provenance chain broken")
		if s.market != nil {
			for range report.Breaks {
				s.market.IncChainBreak()
			}
		}
	}
	return report, nil
}

func (s *service) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]models.Batch, error) {
	if farmID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm id is required")
	}
	return s.repo.ListByFarmChronological(ctx, farmID)
}

func (s *service) validateAppend(input AppendInput) error {
	if input.FarmID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "farm id is required")
	}
	if input.BatchCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch code is required")
	}
	if input.StockedDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "stocked date is required")
	}
	if input.SeedOrigin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "seed origin is required")
	}
	if input.SeedAgeDays < 0 || input.EstimatedYieldKg < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "negative batch attributes")
	}
	return nil
}
