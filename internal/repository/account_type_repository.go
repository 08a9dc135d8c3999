package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/financialapp/account-service/shared/models"
)

const accountTypesKey = "account_types:all"

// AccountTypeRepository serves the seeded account types. The table never
// changes at runtime, so after the first read the list lives in an
// in-process ristretto cache.
type AccountTypeRepository struct {
	db    *sql.DB
	cache *ristretto.Cache
}

func NewAccountTypeRepository(db *sql.DB, cache *ristretto.Cache) *AccountTypeRepository {
	return &AccountTypeRepository{db: db, cache: cache}
}

// NewReferenceCache builds the small ristretto cache used for reference data.
func NewReferenceCache() (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
}

func (r *AccountTypeRepository) List(ctx context.Context) ([]models.AccountType, error) {
	if cached, found := r.cache.Get(accountTypesKey); found {
		if types, ok := cached.([]models.AccountType); ok {
			return copyTypes(types), nil
		}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM account_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list account types: %w", err)
	}
	defer rows.Close()

	var types []models.AccountType
	for rows.Next() {
		var t models.AccountType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan account type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list account types: %w", err)
	}

	r.cache.Set(accountTypesKey, copyTypes(types), int64(len(types)))
	r.cache.Wait()
	return types, nil
}

// callers may sort or trim the slice; the cached copy must stay intact
func copyTypes(types []models.AccountType) []models.AccountType {
	out := make([]models.AccountType, len(types))
	copy(out, types)
	return out
}
