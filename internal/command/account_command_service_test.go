package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/financialapp/account-service/internal/query"
	"github.com/financialapp/account-service/internal/repository/repositorytest"
	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/events"
	"github.com/financialapp/account-service/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeViewCache struct {
	mu          sync.Mutex
	cached      map[int64]models.AccountView
	invalidated []int64
}

func newFakeViewCache() *fakeViewCache {
	return &fakeViewCache{cached: make(map[int64]models.AccountView)}
}

func (f *fakeViewCache) CacheAccountView(_ context.Context, view *models.AccountView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached[view.ID] = *view
}

func (f *fakeViewCache) InvalidateAccountView(_ context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cached, id)
	f.invalidated = append(f.invalidated, id)
}

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, stream, eventType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{stream: stream, eventType: eventType, data: data})
	return f.err
}

// racingStore reports every name as free, as a concurrent creator would see
// it just before the other insert commits.
type racingStore struct {
	*repositorytest.AccountStore
}

func (r racingStore) NameExists(context.Context, string) (bool, error) {
	return false, nil
}

type failingStore struct {
	*repositorytest.AccountStore
	err error
}

func (f failingStore) NameExists(context.Context, string) (bool, error) {
	return false, f.err
}

const (
	userOne int64 = 1
	userTwo int64 = 2
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store     *repositorytest.AccountStore
	views     *fakeViewCache
	publisher *fakePublisher
	commands  *AccountCommandService
	queries   *query.AccountQueryService
}

func newFixture() *fixture {
	store := repositorytest.NewAccountStore()
	views := newFakeViewCache()
	publisher := &fakePublisher{}
	return &fixture{
		store:     store,
		views:     views,
		publisher: publisher,
		commands:  NewAccountCommandService(store, views, publisher, zap.NewNop()),
		queries:   query.NewAccountQueryService(store.Reader(), repositorytest.AccountTypes{}),
	}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	verrs, ok := errs.AsValidation(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	fields := make([]string, 0, len(verrs.Fields))
	for _, f := range verrs.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestAccountCommandService_CreateAccount(t *testing.T) {
	t.Run("Persists a valid account owned by the caller", func(t *testing.T) {
		f := newFixture()
		account, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Checking", Amount: dec("50"), AccountTypeID: 2,
		})
		require.NoError(t, err)
		assert.NotZero(t, account.ID)
		assert.Equal(t, userOne, account.UserID)
		assert.Equal(t, "Savings", account.AccountTypeName)
		assert.Equal(t, 1, f.store.Inserts)

		list, err := f.queries.ListAccounts(context.Background(), cqrs.ListAccountsQuery{UserID: userOne})
		require.NoError(t, err)
		require.Len(t, list.Accounts, 1)
		assert.Equal(t, account.ID, list.Accounts[0].ID)

		assert.Contains(t, f.views.cached, account.ID)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.AccountEventsStream, f.publisher.events[0].stream)
		assert.Equal(t, events.AccountCreated, f.publisher.events[0].eventType)
	})

	t.Run("Rejects account types outside one to six", func(t *testing.T) {
		for _, typeID := range []int{-1, 0, 7, 9} {
			f := newFixture()
			_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
				UserID: userOne, Name: "Checking", Amount: dec("50"), AccountTypeID: typeID,
			})
			assert.Equal(t, []string{"accountTypeId"}, fieldsOf(t, err), "type %d", typeID)
			assert.Zero(t, f.store.Inserts)
		}
	})

	t.Run("Accepts every seeded account type", func(t *testing.T) {
		f := newFixture()
		for typeID := models.MinAccountTypeID; typeID <= models.MaxAccountTypeID; typeID++ {
			_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
				UserID: userOne, Name: "Account " + string(rune('A'+typeID)), AccountTypeID: typeID,
			})
			assert.NoError(t, err)
		}
		assert.Equal(t, 6, f.store.Inserts)
	})

	t.Run("Rejects a name used by any owner", func(t *testing.T) {
		f := newFixture()
		f.store.Seed(models.Account{Name: "Savings", Amount: dec("100"), AccountTypeID: 1, UserID: userTwo})

		_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Savings", Amount: dec("50"), AccountTypeID: 2,
		})
		assert.Equal(t, []string{"name"}, fieldsOf(t, err))
		assert.Zero(t, f.store.Inserts)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("Accumulates every failed check", func(t *testing.T) {
		f := newFixture()
		f.store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userOne})

		_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Savings", AccountTypeID: 9,
		})
		assert.ElementsMatch(t, []string{"accountTypeId", "name"}, fieldsOf(t, err))

		_, err = f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "", AccountTypeID: 0,
		})
		assert.ElementsMatch(t, []string{"name", "accountTypeId"}, fieldsOf(t, err))
		assert.Zero(t, f.store.Inserts)
	})

	t.Run("Rejects amounts the store would round or overflow", func(t *testing.T) {
		for _, amount := range []string{"10.005", "0.001", "100000000000000000000", "-10000000000000000", "1e20"} {
			f := newFixture()
			_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
				UserID: userOne, Name: "Checking", Amount: dec(amount), AccountTypeID: 2,
			})
			assert.Equal(t, []string{"amount"}, fieldsOf(t, err), "amount %s", amount)
			assert.Zero(t, f.store.Inserts)
			assert.Empty(t, f.views.cached)
		}
	})

	t.Run("Accepts amounts that fit two decimal places", func(t *testing.T) {
		for i, amount := range []string{"10.01", "10.500", "-250", "9999999999999999.99"} {
			f := newFixture()
			account, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
				UserID: userOne, Name: fmt.Sprintf("Account %d", i), Amount: dec(amount), AccountTypeID: 2,
			})
			require.NoError(t, err, "amount %s", amount)
			assert.True(t, dec(amount).Equal(f.views.cached[account.ID].Amount))
		}
	})

	t.Run("Reports the amount alongside other failures", func(t *testing.T) {
		f := newFixture()
		_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "", Amount: dec("1.234"), AccountTypeID: 0,
		})
		assert.ElementsMatch(t, []string{"name", "amount", "accountTypeId"}, fieldsOf(t, err))
	})

	t.Run("Reports a lost uniqueness race as a name error", func(t *testing.T) {
		store := repositorytest.NewAccountStore()
		store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userTwo})
		svc := NewAccountCommandService(racingStore{store}, newFakeViewCache(), &fakePublisher{}, zap.NewNop())

		_, err := svc.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Savings", AccountTypeID: 2,
		})
		assert.Equal(t, []string{"name"}, fieldsOf(t, err))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Propagates store failures", func(t *testing.T) {
		boom := errors.New("connection reset")
		svc := NewAccountCommandService(
			failingStore{repositorytest.NewAccountStore(), boom}, newFakeViewCache(), &fakePublisher{}, zap.NewNop(),
		)
		_, err := svc.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Checking", AccountTypeID: 2,
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Still succeeds when publishing fails", func(t *testing.T) {
		f := newFixture()
		f.publisher.err = errors.New("redis down")
		_, err := f.commands.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
			UserID: userOne, Name: "Checking", AccountTypeID: 2,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, f.store.Inserts)
	})
}

func TestAccountCommandService_Scenario(t *testing.T) {
	f := newFixture()
	f.store.Seed(models.Account{ID: 1, Name: "Savings", Amount: dec("100"), AccountTypeID: 1, UserID: userOne})
	ctx := context.Background()

	_, err := f.commands.CreateAccount(ctx, cqrs.CreateAccountCommand{UserID: userOne, Name: "Savings", Amount: dec("50"), AccountTypeID: 2})
	assert.Equal(t, []string{"name"}, fieldsOf(t, err))

	_, err = f.commands.CreateAccount(ctx, cqrs.CreateAccountCommand{UserID: userOne, Name: "Checking", Amount: dec("50"), AccountTypeID: 9})
	assert.Equal(t, []string{"accountTypeId"}, fieldsOf(t, err))

	_, err = f.commands.CreateAccount(ctx, cqrs.CreateAccountCommand{UserID: userOne, Name: "Checking", Amount: dec("50"), AccountTypeID: 2})
	require.NoError(t, err)

	list, err := f.queries.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: userOne})
	require.NoError(t, err)
	assert.Len(t, list.Accounts, 2)
	assert.True(t, dec("150").Equal(list.Total), "total was %s", list.Total)
}

func TestAccountCommandService_UpdateAccount(t *testing.T) {
	t.Run("Changes only the name", func(t *testing.T) {
		f := newFixture()
		seeded := f.store.Seed(models.Account{Name: "Savings", Amount: dec("100.25"), AccountTypeID: 3, UserID: userOne})

		updated, err := f.commands.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne, Name: "Rainy day",
		})
		require.NoError(t, err)
		assert.Equal(t, "Rainy day", updated.Name)

		stored, err := f.store.GetByID(context.Background(), seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "Rainy day", stored.Name)
		assert.True(t, dec("100.25").Equal(stored.Amount))
		assert.Equal(t, 3, stored.AccountTypeID)
		assert.Equal(t, "Rainy day", f.views.cached[seeded.ID].Name)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.AccountUpdated, f.publisher.events[0].eventType)
	})

	t.Run("Fails with NotFound for a missing id", func(t *testing.T) {
		f := newFixture()
		_, err := f.commands.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
			AccountID: 42, RequestingUserID: userOne, Name: "Anything",
		})
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.Zero(t, f.store.Updates)
	})

	t.Run("Refuses to rename another user's account", func(t *testing.T) {
		f := newFixture()
		seeded := f.store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userTwo})
		_, err := f.commands.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne, Name: "Mine now",
		})
		assert.ErrorIs(t, err, errs.ErrForbidden)
		assert.Zero(t, f.store.Updates)
	})

	t.Run("Requires a name", func(t *testing.T) {
		f := newFixture()
		seeded := f.store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userOne})
		_, err := f.commands.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne, Name: "",
		})
		assert.Equal(t, []string{"name"}, fieldsOf(t, err))
		assert.Zero(t, f.store.Updates)
	})

	t.Run("Rejects renaming onto an existing name", func(t *testing.T) {
		f := newFixture()
		f.store.Seed(models.Account{Name: "Taken", AccountTypeID: 1, UserID: userTwo})
		seeded := f.store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userOne})
		_, err := f.commands.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne, Name: "Taken",
		})
		assert.Equal(t, []string{"name"}, fieldsOf(t, err))
	})
}

func TestAccountCommandService_DeleteAccount(t *testing.T) {
	t.Run("Removes the account from every list", func(t *testing.T) {
		f := newFixture()
		seeded := f.store.Seed(models.Account{Name: "Savings", Amount: dec("10"), AccountTypeID: 1, UserID: userOne})

		err := f.commands.DeleteAccount(context.Background(), cqrs.DeleteAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne,
		})
		require.NoError(t, err)

		for _, owner := range []int64{userOne, userTwo} {
			list, err := f.queries.ListAccounts(context.Background(), cqrs.ListAccountsQuery{UserID: owner})
			require.NoError(t, err)
			assert.Empty(t, list.Accounts)
			assert.True(t, list.Total.IsZero())
		}
		assert.Equal(t, []int64{seeded.ID}, f.views.invalidated)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, events.AccountDeleted, f.publisher.events[0].eventType)
	})

	t.Run("Fails with NotFound for a missing id", func(t *testing.T) {
		f := newFixture()
		err := f.commands.DeleteAccount(context.Background(), cqrs.DeleteAccountCommand{
			AccountID: 7, RequestingUserID: userOne,
		})
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.Zero(t, f.store.Deletes)
	})

	t.Run("Refuses to delete another user's account", func(t *testing.T) {
		f := newFixture()
		seeded := f.store.Seed(models.Account{Name: "Savings", AccountTypeID: 1, UserID: userTwo})
		err := f.commands.DeleteAccount(context.Background(), cqrs.DeleteAccountCommand{
			AccountID: seeded.ID, RequestingUserID: userOne,
		})
		assert.ErrorIs(t, err, errs.ErrForbidden)
		assert.Equal(t, 1, f.store.Len())
	})
}
