package bot

import (
	"context"
	"errors"

	"telemonitorrent/internal/model"
	"telemonitorrent/internal/storage"
)

// authorize is called at the top of every update before any handler runs.
// The very first user ever seen is registered as admin with subscription
// enabled; after that, unknown users are denied until an admin adds them.
func (b *Bot) authorize(ctx context.Context, userID, chatID int64) bool {
	_, err := b.store.GetUser(ctx, userID)
	if err == nil {
		return true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		b.log.Error("look up user", "user_id", userID, "error", err)
		return false
	}

	count, err := b.store.CountUsers(ctx)
	if err != nil {
		b.log.Error("count users", "error", err)
		return false
	}
	if count == 0 {
		first := model.User{ID: userID, IsAdmin: true, Subscribed: true}
		if err := b.store.CreateUser(ctx, first); err != nil {
			b.log.Error("register first user", "user_id", userID, "error", err)
			return false
		}
		b.log.Info("first user registered as admin", "user_id", userID)
		return true
	}

	b.log.Warn("access denied for unknown user", "user_id", userID)
	b.reply(chatID, "Sorry, you don't have access to this bot. Ask an administrator to register you.")
	return false
}

// requireAdmin guards administrative commands. Callers run it after
// authorize, so the user row is known to exist.
func (b *Bot) requireAdmin(ctx context.Context, userID, chatID int64) bool {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		b.log.Error("look up user", "user_id", userID, "error", err)
		return false
	}
	if !user.IsAdmin {
		b.log.Warn("admin command denied", "user_id", userID)
		b.reply(chatID, "This command requires administrator rights.")
		return false
	}
	return true
}
