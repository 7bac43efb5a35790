package utils

import (
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	db   *gorm.DB
	once sync.Once
	mu   sync.RWMutex
)

// InitDB initializes database connection
func InitDB(database *gorm.DB) {
	once.Do(func() {
		db = database
	})
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return db
}

// LockForUpdate adds an exclusive row lock to the query on dialects that
// support SELECT ... FOR UPDATE. sqlite (used by the tests) serializes
// writers on its own, so the clause is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
