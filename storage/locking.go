package storage

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds SELECT ... FOR UPDATE on engines that support it. The
// sqlite test database serializes writers on its own, so the clause is
// skipped there rather than producing a syntax error.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// BookingTransaction runs fn in a transaction with a bounded lock wait, so
// a request that cannot acquire its row locks fails fast with a retryable
// error instead of blocking indefinitely.
func BookingTransaction(fn func(tx *gorm.DB) error) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SET LOCAL lock_timeout = '5s'").Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}
