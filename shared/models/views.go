package models

import "github.com/shopspring/decimal"

// AccountList is the read projection behind the account index page.
type AccountList struct {
	Accounts []Account      `json:"accounts"`
	Total    decimal.Decimal `json:"total"`
	Filter   string          `json:"filter,omitempty"`
}

// AccountView is the Redis read model of one account. Unlike Account it
// serialises the owner so that ownership can be checked from the cache.
type AccountView struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	AccountTypeID   int             `json:"accountTypeId"`
	AccountTypeName string          `json:"accountTypeName"`
}

func (v *AccountView) ToAccount() *Account {
	return &Account{
		ID:              v.ID,
		Name:            v.Name,
		Amount:          v.Amount,
		AccountTypeID:   v.AccountTypeID,
		AccountTypeName: v.AccountTypeName,
		UserID:          v.UserID,
	}
}

func ViewOf(a *Account) *AccountView {
	return &AccountView{
		ID:              a.ID,
		UserID:          a.UserID,
		Name:            a.Name,
		Amount:          a.Amount,
		AccountTypeID:   a.AccountTypeID,
		AccountTypeName: a.AccountTypeName,
	}
}
