package command

import (
	"context"
	"errors"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/events"
	"github.com/financialapp/account-service/shared/models"
	"github.com/financialapp/account-service/shared/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	msgAccountTypeMissing = "account type does not exist"
	msgAccountNameTaken   = "account name already exists"
	msgAmountScale        = "amount must have at most 2 decimal places"
	msgAmountRange        = "amount is too large"
)

// AccountStore is the write store used by the command side.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	NameExists(ctx context.Context, name string) (bool, error)
	UpdateName(ctx context.Context, id, ownerID int64, name string) error
	Delete(ctx context.Context, id, ownerID int64) error
}

// AccountViewCache keeps the Redis read model in step with writes.
type AccountViewCache interface {
	CacheAccountView(ctx context.Context, view *models.AccountView)
	InvalidateAccountView(ctx context.Context, id int64)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountCommandService writes account state and keeps the read model in sync.
type AccountCommandService struct {
	store     AccountStore
	views     AccountViewCache
	publisher EventPublisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewAccountCommandService(
	store AccountStore,
	views AccountViewCache,
	publisher EventPublisher,
	logger *zap.Logger,
) *AccountCommandService {
	return &AccountCommandService{
		store:     store,
		views:     views,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("account-service/command"),
	}
}

// CreateAccount validates and stores a new account owned by cmd.UserID. Every
// failed check is reported at once as *errs.ValidationErrors and nothing is
// written in that case.
func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountCommandService.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", cmd.UserID))

	verrs := &errs.ValidationErrors{}
	validation.Into(verrs, cmd)
	switch {
	case !models.HasAmountScale(cmd.Amount):
		verrs.Add("amount", "scale", msgAmountScale)
	case !models.IsAmountInRange(cmd.Amount):
		verrs.Add("amount", "max", msgAmountRange)
	}
	if !models.IsValidAccountTypeID(cmd.AccountTypeID) {
		verrs.Add("accountTypeId", "exists", msgAccountTypeMissing)
	}
	if cmd.Name != "" {
		taken, err := s.store.NameExists(ctx, cmd.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			verrs.Add("name", "unique", msgAccountNameTaken)
		}
	}
	if err := verrs.OrNil(); err != nil {
		return nil, err
	}

	account := &models.Account{
		Name:          cmd.Name,
		Amount:        cmd.Amount,
		AccountTypeID: cmd.AccountTypeID,
		UserID:        cmd.UserID,
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, errs.ErrDuplicateName) {
			// lost a race with a concurrent create of the same name
			return nil, nameTaken()
		}
		return nil, err
	}

	s.views.CacheAccountView(ctx, models.ViewOf(account))
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:     account.ID,
		UserID:        account.UserID,
		Name:          account.Name,
		Amount:        account.Amount.String(),
		AccountTypeID: account.AccountTypeID,
	})
	s.logger.Info("Account created", zap.Int64("accountId", account.ID), zap.Int64("userId", account.UserID))
	return account, nil
}

// UpdateAccount renames an account the caller owns. Amount and type are left
// untouched.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AccountCommandService.UpdateAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", cmd.AccountID))

	account, err := s.ownedAccount(ctx, cmd.AccountID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if verrs := validation.Struct(cmd); verrs != nil {
		return nil, verrs
	}

	if err := s.store.UpdateName(ctx, account.ID, account.UserID, cmd.Name); err != nil {
		if errors.Is(err, errs.ErrDuplicateName) {
			return nil, nameTaken()
		}
		return nil, err
	}
	account.Name = cmd.Name

	s.views.CacheAccountView(ctx, models.ViewOf(account))
	s.publish(ctx, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID: account.ID,
		UserID:    account.UserID,
		Name:      account.Name,
	})
	return account, nil
}

// DeleteAccount removes an account the caller owns.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	ctx, span := s.tracer.Start(ctx, "AccountCommandService.DeleteAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", cmd.AccountID))

	account, err := s.ownedAccount(ctx, cmd.AccountID, cmd.RequestingUserID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, account.ID, account.UserID); err != nil {
		return err
	}

	s.views.InvalidateAccountView(ctx, account.ID)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: account.ID,
		UserID:    account.UserID,
	})
	s.logger.Info("Account deleted", zap.Int64("accountId", account.ID), zap.Int64("userId", account.UserID))
	return nil
}

func (s *AccountCommandService) ownedAccount(ctx context.Context, id, userID int64) (*models.Account, error) {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		s.logger.Warn("Rejected access to another user's account",
			zap.Int64("accountId", id), zap.Int64("userId", userID))
		return nil, errs.ErrForbidden
	}
	return account, nil
}

// Publishing is best effort: the write is already committed.
func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, eventType, data); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func nameTaken() *errs.ValidationErrors {
	verrs := &errs.ValidationErrors{}
	verrs.Add("name", "unique", msgAccountNameTaken)
	return verrs
}
