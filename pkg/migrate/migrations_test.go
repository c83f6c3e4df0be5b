package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aquatrade/aquatrade-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_wallets_ledger.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS wallets",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_wallet_owner ON wallets (owner_type, owner_id)",
		"CHECK (balance >= 0)",
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_ledger_reference ON ledger_entries (reference)",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS ledger_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationPreventsNegativeStock(t *testing.T) {
	content := readMigration(t, "*_create_farms_batches_products.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock_kg >= 0)",
		"previous_hash text NOT NULL",
		"current_hash text NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_batches_farm_created ON batches (farm_id, created_at)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDeliveriesMigrationEnforcesTokenUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_deliveries.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_deliveries_order ON deliveries (order_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_deliveries_pickup_token ON deliveries (pickup_token)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_deliveries_delivery_token ON deliveries (delivery_token)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
