// Package repositorytest provides in-memory stand-ins for the PostgreSQL
// repositories. They honour the same contracts (unique names, owner-scoped
// writes, NotFound errors) so services can be exercised without a database.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
)

// SeedAccountTypes mirrors migration 002_account_types.sql.
var SeedAccountTypes = []models.AccountType{
	{ID: 1, Name: "Cash"},
	{ID: 2, Name: "Savings"},
	{ID: 3, Name: "Checking"},
	{ID: 4, Name: "Credit card"},
	{ID: 5, Name: "Investment"},
	{ID: 6, Name: "Loan"},
}

// AccountStore is the write side. Reader returns the read side over the same
// rows.
type AccountStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]models.Account

	Inserts int
	Updates int
	Deletes int
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[int64]models.Account)}
}

// Seed stores a without going through validation and returns it with its id.
func (s *AccountStore) Seed(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	a.AccountTypeName = typeName(a.AccountTypeID)
	s.accounts[a.ID] = a
	return a
}

func (s *AccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *AccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(account.Name, 0) {
		return errs.ErrDuplicateName
	}
	s.nextID++
	account.ID = s.nextID
	account.AccountTypeName = typeName(account.AccountTypeID)
	s.accounts[account.ID] = *account
	s.Inserts++
	return nil
}

func (s *AccountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errs.NewNotFound("account", id)
	}
	return &a, nil
}

func (s *AccountStore) NameExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nameTaken(name, 0), nil
}

func (s *AccountStore) UpdateName(_ context.Context, id, ownerID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != ownerID {
		return errs.NewNotFound("account", id)
	}
	if s.nameTaken(name, id) {
		return errs.ErrDuplicateName
	}
	a.Name = name
	s.accounts[id] = a
	s.Updates++
	return nil
}

func (s *AccountStore) Delete(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != ownerID {
		return errs.NewNotFound("account", id)
	}
	delete(s.accounts, id)
	s.Deletes++
	return nil
}

func (s *AccountStore) nameTaken(name string, exceptID int64) bool {
	for id, a := range s.accounts {
		if id != exceptID && a.Name == name {
			return true
		}
	}
	return false
}

// Reader exposes the store through the read repository's method set.
func (s *AccountStore) Reader() *AccountReader {
	return &AccountReader{store: s}
}

type AccountReader struct {
	store *AccountStore
}

func (r *AccountReader) GetByID(ctx context.Context, id int64) (*models.AccountView, error) {
	a, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.ViewOf(a), nil
}

// ListByUserID matches the filter case-sensitively, like the default
// PostgreSQL repository.
func (r *AccountReader) ListByUserID(_ context.Context, userID int64, filter string) ([]models.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []models.Account{}
	for _, a := range r.store.accounts {
		if a.UserID == userID && strings.Contains(a.Name, filter) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AccountTypes serves SeedAccountTypes.
type AccountTypes struct {
	Err error
}

func (t AccountTypes) List(context.Context) ([]models.AccountType, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	out := make([]models.AccountType, len(SeedAccountTypes))
	copy(out, SeedAccountTypes)
	return out, nil
}

func typeName(id int) string {
	for _, t := range SeedAccountTypes {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}
