package events

import "time"

// Event types
const (
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"

	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"
)

// Stream names
const (
	UserEventsStream    = "user.events"
	AccountEventsStream = "account.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// User events, produced by the identity system.
type UserUpdatedEvent struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	OldUsername string `json:"oldUsername,omitempty"`
}

type UserDeletedEvent struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID     int64  `json:"accountId"`
	UserID        int64  `json:"userId"`
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	AccountTypeID int    `json:"accountTypeId"`
}

type AccountUpdatedEvent struct {
	AccountID int64  `json:"accountId"`
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
}

type AccountDeletedEvent struct {
	AccountID int64 `json:"accountId"`
	UserID    int64 `json:"userId"`
}
