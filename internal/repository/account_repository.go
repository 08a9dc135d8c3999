package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/models"
	"github.com/lib/pq"
)

const (
	uniqueViolation       = "23505"
	accountNameConstraint = "accounts_name_key"
)

const selectAccount = `
	SELECT a.id, a.name, a.amount, a.account_type_id, t.name, a.user_id
	FROM accounts a
	JOIN account_types t ON t.id = a.account_type_id
`

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth).
type AccountWriteRepository struct {
	db *sql.DB
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

// Create inserts account and fills in the store-assigned id, the amount as
// stored and the type name. A name that is already taken yields errs.ErrDuplicateName.
func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO accounts (name, amount, account_type_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, amount, (SELECT name FROM account_types WHERE id = $3)
	`
	err = tx.QueryRowContext(ctx, query,
		account.Name, account.Amount, account.AccountTypeID, account.UserID,
	).Scan(&account.ID, &account.Amount, &account.AccountTypeName)
	if err != nil {
		return translateWriteError("create", err)
	}
	if err := tx.Commit(); err != nil {
		return translateWriteError("commit", err)
	}
	return nil
}

// GetByID fetches the full write model including UserID for ownership checks.
func (r *AccountWriteRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE a.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// NameExists checks the name against every account, whoever owns it.
func (r *AccountWriteRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account name: %w", err)
	}
	return exists, nil
}

// UpdateName renames the account when it still belongs to ownerID.
func (r *AccountWriteRepository) UpdateName(ctx context.Context, id, ownerID int64, name string) error {
	query := `UPDATE accounts SET name = $3 WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID, name)
	if err != nil {
		return translateWriteError("update", err)
	}
	return expectOneRow(result, id)
}

// Delete removes the account when it still belongs to ownerID.
func (r *AccountWriteRepository) Delete(ctx context.Context, id, ownerID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return errs.NewNotFound("account", id)
	}
	return nil
}

func translateWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == accountNameConstraint {
		return errs.ErrDuplicateName
	}
	return fmt.Errorf("failed to %s account: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Amount, &a.AccountTypeID, &a.AccountTypeName, &a.UserID); err != nil {
		return nil, err
	}
	return &a, nil
}
