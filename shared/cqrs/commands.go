package cqrs

import "github.com/shopspring/decimal"

// CreateAccountCommand carries the creation form. UserID always comes from the
// resolved caller, never from the submitted form. The json tags name the keys
// of validation errors.
type CreateAccountCommand struct {
	UserID        int64           `json:"-"`
	Name          string          `json:"name" validate:"required,max=100"`
	Amount        decimal.Decimal `json:"amount"`
	AccountTypeID int             `json:"accountTypeId"`
}

// UpdateAccountCommand renames an account. Amount and type are not editable.
type UpdateAccountCommand struct {
	AccountID        int64  `json:"-"`
	RequestingUserID int64  `json:"-"`
	Name             string `json:"name" validate:"required,max=100"`
}

type DeleteAccountCommand struct {
	AccountID        int64
	RequestingUserID int64
}
