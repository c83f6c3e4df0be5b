package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
)

// Line is one product quantity to reserve or release.
type Line struct {
	ProductID uuid.UUID
	QtyKg     int
}

// Reserve decrements stock for every line or fails the whole batch. Stock can
// never go negative: the decrement is guarded by the current quantity, and a
// product that hits zero flips to SOLD_OUT in the same transaction. Lines are
// processed in product-id order so concurrent reservations cannot deadlock.
func Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := normalize(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		result := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND status = ? AND stock_kg >= ?", line.ProductID, enums.ProductStatusAvailable, line.QtyKg).
			UpdateColumn("stock_kg", gorm.Expr("stock_kg - ?", line.QtyKg))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shortageError(ctx, tx, line)
		}

		if err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock_kg = 0", line.ProductID).
			UpdateColumn("status", enums.ProductStatusSoldOut).Error; err != nil {
			return err
		}
	}
	return nil
}

// Release returns previously reserved stock, reviving SOLD_OUT products.
func Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := normalize(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		result := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("stock_kg", gorm.Expr("stock_kg + ?", line.QtyKg))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		if err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND status = ? AND stock_kg > 0", line.ProductID, enums.ProductStatusSoldOut).
			UpdateColumn("status", enums.ProductStatusAvailable).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalize(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	byProduct := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.QtyKg <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d for product %s", line.QtyKg, line.ProductID))
		}
		byProduct[line.ProductID] += line.QtyKg
	}

	merged := make([]Line, 0, len(byProduct))
	for productID, qty := range byProduct {
		merged = append(merged, Line{ProductID: productID, QtyKg: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].ProductID[:], merged[j].ProductID[:]) < 0
	})
	return merged, nil
}

func shortageError(ctx context.Context, tx *gorm.DB, line Line) error {
	var product models.Product
	err := tx.WithContext(ctx).
		Where("id = ?", line.ProductID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": line.ProductID})
	}
	if err != nil {
		return err
	}

	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
		WithDetails(map[string]any{
			"product_id": product.ID,
			"species":    product.Species,
			"available":  product.StockKg,
			"requested":  line.QtyKg,
			"status":     product.Status,
		})
}
