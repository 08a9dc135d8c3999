package query

import (
	"context"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type AccountReader interface {
	GetByID(ctx context.Context, id int64) (*models.AccountView, error)
	ListByUserID(ctx context.Context, userID int64, filter string) ([]models.Account, error)
}

type AccountTypeLister interface {
	List(ctx context.Context) ([]models.AccountType, error)
}

type AccountQueryService struct {
	accounts AccountReader
	types    AccountTypeLister
	tracer   trace.Tracer
}

func NewAccountQueryService(accounts AccountReader, types AccountTypeLister) *AccountQueryService {
	return &AccountQueryService{
		accounts: accounts,
		types:    types,
		tracer:   otel.Tracer("account-service/query"),
	}
}

// ListAccounts returns the caller's accounts matching the filter together
// with the sum of their amounts.
func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) (*models.AccountList, error) {
	ctx, span := s.tracer.Start(ctx, "AccountQueryService.ListAccounts")
	defer span.End()

	accounts, err := s.accounts.ListByUserID(ctx, q.UserID, q.Filter)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Amount)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return &models.AccountList{Accounts: accounts, Total: total, Filter: q.Filter}, nil
}

// GetAccount fetches a single account and enforces ownership.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountQueryService.GetAccount")
	defer span.End()

	view, err := s.accounts.GetByID(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if view.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return view.ToAccount(), nil
}

// ListAccountTypes returns the reference list shown on account forms.
func (s *AccountQueryService) ListAccountTypes(ctx context.Context) ([]models.AccountType, error) {
	return s.types.List(ctx)
}
