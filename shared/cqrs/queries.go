package cqrs

// ---------- User queries ----------

// ResolveUserQuery looks up the caller from the username claim of the token.
type ResolveUserQuery struct {
	Username string
}

// ---------- Account queries ----------

// GetAccountQuery fetches a single account, subject to ownership check.
type GetAccountQuery struct {
	AccountID        int64
	RequestingUserID int64
}

// ListAccountsQuery fetches the accounts of a user whose name contains Filter.
// An empty Filter matches every account.
type ListAccountsQuery struct {
	UserID int64
	Filter string
}
