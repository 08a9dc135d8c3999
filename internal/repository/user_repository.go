package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	sharedredis "github.com/financialapp/account-service/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const userByNameKeyPrefix = "user:username:"

// UserRepository resolves usernames to users. Users belong to the identity
// system; this service only reads them, caching hits in Redis for ttl.
type UserRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.User]
}

func NewUserRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.User](redisClient, ttl, logger),
	}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	cacheKey := userByNameKeyPrefix + username
	if user, ok := r.cache.Get(ctx, cacheKey); ok {
		return user, nil
	}

	var user models.User
	err := r.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.cache.Set(ctx, cacheKey, &user)
	return &user, nil
}

// InvalidateUsername drops the cached lookup for username.
func (r *UserRepository) InvalidateUsername(ctx context.Context, username string) {
	r.cache.Delete(ctx, userByNameKeyPrefix+username)
}
