package query

import (
	"context"
	"testing"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapUserFinder struct {
	users   map[string]*models.User
	lookups int
}

func (m *mapUserFinder) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.lookups++
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, errs.NewNotFound("user", username)
}

func TestUserQueryService_ResolveCurrentUser(t *testing.T) {
	finder := &mapUserFinder{users: map[string]*models.User{
		"alice": {ID: 1, Username: "alice"},
	}}
	svc := NewUserQueryService(finder)

	t.Run("Known username resolves", func(t *testing.T) {
		user, err := svc.ResolveCurrentUser(context.Background(), cqrs.ResolveUserQuery{Username: "alice"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("Unknown username is not found", func(t *testing.T) {
		_, err := svc.ResolveCurrentUser(context.Background(), cqrs.ResolveUserQuery{Username: "mallory"})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("Missing claim is an identity error without a lookup", func(t *testing.T) {
		before := finder.lookups
		for _, username := range []string{"", "   "} {
			_, err := svc.ResolveCurrentUser(context.Background(), cqrs.ResolveUserQuery{Username: username})
			assert.ErrorIs(t, err, errs.ErrIdentity)
		}
		assert.Equal(t, before, finder.lookups)
	})
}
