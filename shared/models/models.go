package models

import "github.com/shopspring/decimal"

// Account type ids are seeded once; nothing outside this range exists.
const (
	MinAccountTypeID = 1
	MaxAccountTypeID = 6
)

// Amounts are stored as NUMERIC(18,2): at most two decimal places and an
// absolute value below AmountLimit.
const AmountScale = 2

var AmountLimit = decimal.New(1, 16)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type AccountType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Account struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	AccountTypeID   int             `json:"accountTypeId"`
	AccountTypeName string          `json:"accountTypeName,omitempty"`
	UserID          int64           `json:"-"`
}

// IsValidAccountTypeID reports whether id names one of the seeded account types.
func IsValidAccountTypeID(id int) bool {
	return id >= MinAccountTypeID && id <= MaxAccountTypeID
}

// HasAmountScale reports whether amount needs no rounding to be stored.
func HasAmountScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(AmountScale))
}

// IsAmountInRange reports whether amount fits the integer digits of the column.
func IsAmountInRange(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(AmountLimit)
}
