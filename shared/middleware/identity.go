package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const currentUserKey = "currentUser"

// UserResolver maps the username claim onto a stored user.
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, q cqrs.ResolveUserQuery) (*models.User, error)
}

// CurrentUserMiddleware resolves the caller once per request. It must run
// after AuthMiddleware. A missing claim or an unknown username ends the
// request with 401 before any handler runs.
func CurrentUserMiddleware(resolver UserResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, _ := GetUsername(c)
		user, err := resolver.ResolveCurrentUser(c.Request.Context(), cqrs.ResolveUserQuery{Username: username})
		if err != nil {
			if errors.Is(err, errs.ErrIdentity) || errors.Is(err, errs.ErrNotFound) {
				logger.Info("Rejected request without a known user", zap.String("username", username), zap.Error(err))
				RespondWithError(c, http.StatusUnauthorized, "Unauthenticated")
				c.Abort()
				return
			}
			logger.Error("Failed to resolve current user", zap.String("username", username), zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to resolve current user")
			c.Abort()
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by CurrentUserMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetCurrentUser is used by tests and alternative auth chains.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}
