package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pqUniqueViolation = "23505"

type GormRepo struct {
	DB *gorm.DB
}

// forUpdate adds a row lock on postgres; sqlite already serialises writers.
func (r *GormRepo) forUpdate(tx *gorm.DB) *gorm.DB {
	if r.DB.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// uniqueErr reports unique-index violations as gorm.ErrDuplicatedKey whatever
// driver raised them; other errors pass through.
func uniqueErr(err error) error {
	if err == nil || errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %v", gorm.ErrDuplicatedKey, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", gorm.ErrDuplicatedKey, err)
	}
	return err
}
