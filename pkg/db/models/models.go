package models

// All lists every persisted model in dependency order; cmd/migrate and the
// test helpers feed it to AutoMigrate.
func All() []any {
	return []any{
		&Producer{},
		&Hauler{},
		&Buyer{},
		&Farm{},
		&Batch{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Delivery{},
		&Wallet{},
		&LedgerEntry{},
		&WithdrawRequest{},
		&PaymentLog{},
	}
}
