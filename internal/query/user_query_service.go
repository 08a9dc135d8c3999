package query

import (
	"context"
	"strings"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
)

type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserQueryService turns the username claim of a verified token into the
// stored user. It fails closed: no claim, no user.
type UserQueryService struct {
	users UserFinder
}

func NewUserQueryService(users UserFinder) *UserQueryService {
	return &UserQueryService{users: users}
}

func (s *UserQueryService) ResolveCurrentUser(ctx context.Context, q cqrs.ResolveUserQuery) (*models.User, error) {
	if strings.TrimSpace(q.Username) == "" {
		return nil, errs.ErrIdentity
	}
	return s.users.GetByUsername(ctx, q.Username)
}
