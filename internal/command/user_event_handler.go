package command

import (
	"context"

	"github.com/financialapp/account-service/shared/events"
	"go.uber.org/zap"
)

// UsernameCache is the part of the user repository that caches lookups.
type UsernameCache interface {
	InvalidateUsername(ctx context.Context, username string)
}

// UserEventHandler consumes user.* events from the identity system and drops
// cached username lookups that may have gone stale.
type UserEventHandler struct {
	users  UsernameCache
	logger *zap.Logger
}

func NewUserEventHandler(users UsernameCache, logger *zap.Logger) *UserEventHandler {
	return &UserEventHandler{users: users, logger: logger}
}

// HandleUserEvent is the Redis stream subscriber handler.
func (h *UserEventHandler) HandleUserEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.UserUpdated:
		var data events.UserUpdatedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		h.users.InvalidateUsername(ctx, data.Username)
		if data.OldUsername != "" && data.OldUsername != data.Username {
			h.users.InvalidateUsername(ctx, data.OldUsername)
		}
		h.logger.Info("Dropped cached user after update", zap.Int64("userId", data.UserID))
	case events.UserDeleted:
		var data events.UserDeletedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		h.users.InvalidateUsername(ctx, data.Username)
		h.logger.Info("Dropped cached user after delete", zap.Int64("userId", data.UserID))
	default:
		h.logger.Debug("Ignoring user event", zap.String("type", event.Type))
	}
	return nil
}
