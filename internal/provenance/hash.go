package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
)

// GenesisHash seeds the first batch of every farm's chain.
const GenesisHash = "GENESIS"

// HashFields is the fixed, ordered field list covered by a batch hash.
// Changing this list or its order invalidates every stored chain.
type HashFields struct {
	FarmID           uuid.UUID
	BatchCode        string
	StockedDate      time.Time
	HarvestDate      *time.Time
	SeedAgeDays      int
	SeedOrigin       string
	WaterPH          float64
	WaterSalinity    float64
	EstimatedYieldKg int
}

// ComputeHash derives the batch hash from its previous hash and the canonical
// serialization of the covered fields. Pure; the write path calls it before
// persisting.
func ComputeHash(fields HashFields, previousHash string) string {
	harvest := ""
	if fields.HarvestDate != nil {
		harvest = fields.HarvestDate.UTC().Format(time.RFC3339)
	}
	parts := []string{
		previousHash,
		fields.FarmID.String(),
		fields.BatchCode,
		fields.StockedDate.UTC().Format(time.RFC3339),
		harvest,
		strconv.Itoa(fields.SeedAgeDays),
		fields.SeedOrigin,
		strconv.FormatFloat(fields.WaterPH, 'f', -1, 64),
		strconv.FormatFloat(fields.WaterSalinity, 'f', -1, 64),
		strconv.Itoa(fields.EstimatedYieldKg),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func fieldsOf(batch *models.Batch) HashFields {
	return HashFields{
		FarmID:           batch.FarmID,
		BatchCode:        batch.BatchCode,
		StockedDate:      batch.StockedDate,
		HarvestDate:      batch.HarvestDate,
		SeedAgeDays:      batch.SeedAgeDays,
		SeedOrigin:       batch.SeedOrigin,
		WaterPH:          batch.WaterPH,
		WaterSalinity:    batch.WaterSalinity,
		EstimatedYieldKg: batch.EstimatedYieldKg,
	}
}
