package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate adds a FOR UPDATE clause on dialects that support it. SQLite
// rejects the clause and serializes writers on its own, so it is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return nil
	}
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
