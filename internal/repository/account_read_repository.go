package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	sharedredis "github.com/financialapp/account-service/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const accountViewKeyPrefix = "account:view:"

// accountViewStore is the part of sharedredis.ViewCache the read model uses.
type accountViewStore interface {
	Get(ctx context.Context, key string) (*models.AccountView, bool)
	Set(ctx context.Context, key string, value *models.AccountView)
	SetIfAbsent(ctx context.Context, key string, value *models.AccountView)
	Tombstone(ctx context.Context, key string)
}

// AccountReadRepository handles all read operations for accounts.
// Single accounts are served from the Redis read model with a transparent
// PostgreSQL fallback that warms the cache. Lists always come from PostgreSQL.
//
// Cached views expire after ttl. The fallback only fills an empty key, and a
// deleted account leaves a tombstone, so a read racing a write can never
// overwrite what the writer cached after its commit.
type AccountReadRepository struct {
	db              *sql.DB
	cache           accountViewStore
	caseInsensitive bool
}

func NewAccountReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, caseInsensitive bool, logger *zap.Logger) *AccountReadRepository {
	return newAccountReadRepository(db, sharedredis.NewViewCache[models.AccountView](redisClient, ttl, logger), caseInsensitive)
}

func newAccountReadRepository(db *sql.DB, cache accountViewStore, caseInsensitive bool) *AccountReadRepository {
	return &AccountReadRepository{db: db, cache: cache, caseInsensitive: caseInsensitive}
}

// GetByID returns an AccountView, trying Redis first then PostgreSQL.
func (r *AccountReadRepository) GetByID(ctx context.Context, id int64) (*models.AccountView, error) {
	if view, ok := r.cache.Get(ctx, accountViewKey(id)); ok {
		return view, nil
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE a.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	view := models.ViewOf(account)
	r.cache.SetIfAbsent(ctx, accountViewKey(id), view)
	return view, nil
}

// ListByUserID returns the accounts of userID whose name contains filter.
// The filter is a literal substring, so LIKE wildcards in it match nothing
// special.
func (r *AccountReadRepository) ListByUserID(ctx context.Context, userID int64, filter string) ([]models.Account, error) {
	query := selectAccount + ` WHERE a.user_id = $1`
	args := []any{userID}
	if filter != "" {
		if r.caseInsensitive {
			query += ` AND strpos(lower(a.name), lower($2)) > 0`
		} else {
			query += ` AND strpos(a.name, $2) > 0`
		}
		args = append(args, filter)
	}
	query += ` ORDER BY a.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// CacheAccountView stores or refreshes the Redis read model for an account.
// Called by the command service after every mutation to keep the read model current.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	r.cache.Set(ctx, accountViewKey(view.ID), view)
}

// InvalidateAccountView tombstones the Redis read model entry for a deleted
// account.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, id int64) {
	r.cache.Tombstone(ctx, accountViewKey(id))
}

func accountViewKey(id int64) string {
	return accountViewKeyPrefix + strconv.FormatInt(id, 10)
}
