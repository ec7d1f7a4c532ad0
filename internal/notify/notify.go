// Package notify fans update notifications out to subscribed users.
package notify

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telemonitorrent/internal/storage"
)

// Sender is the interface for delivering Telegram messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier broadcasts messages to every subscribed user.
type Notifier struct {
	sender  Sender
	store   storage.Storage
	enabled bool
	log     *slog.Logger
}

// New creates a Notifier. When enabled is false every broadcast is a logged
// no-op.
func New(sender Sender, store storage.Storage, enabled bool, log *slog.Logger) *Notifier {
	return &Notifier{sender: sender, store: store, enabled: enabled, log: log}
}

// NotifySubscribers delivers text (HTML parse mode) to each subscriber
// independently; one failed delivery never stops the rest. When buttonURL is
// set the message carries a single URL button labelled buttonText.
func (n *Notifier) NotifySubscribers(ctx context.Context, text, buttonText, buttonURL string) {
	if !n.enabled {
		n.log.Info("notifications disabled, skipping broadcast")
		return
	}

	subscribers, err := n.store.ListSubscribers(ctx)
	if err != nil {
		n.log.Error("list subscribers", "error", err)
		return
	}
	if len(subscribers) == 0 {
		n.log.Info("no subscribers to notify")
		return
	}

	var markup *tgbotapi.InlineKeyboardMarkup
	if buttonURL != "" {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(buttonText, buttonURL),
			),
		)
		markup = &kb
	}

	sent := 0
	for _, user := range subscribers {
		msg := tgbotapi.NewMessage(user.ID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		if _, err := n.sender.Send(msg); err != nil {
			n.log.Error("send notification", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}

	n.log.Info("notifications sent", "sent", sent, "subscribers", len(subscribers))
}
