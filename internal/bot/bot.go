// Package bot implements the Telegram command surface. It owns no business
// logic: handlers validate input, call the storage/monitor/tracker layers,
// and render results.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telemonitorrent/internal/config"
	"telemonitorrent/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// site is the slice of the tracker client the handlers need directly.
type site interface {
	PageContent(ctx context.Context, url string) (string, error)
	EditDate(html string) string
	Title(html string) string
}

// pipeline triggers update checks and primes new pages.
type pipeline interface {
	CheckPages(ctx context.Context, targetURL string) (bool, error)
	SeedPage(ctx context.Context, id int64, url string) error
}

// Bot handles user commands and callback buttons. All collaborators are
// injected at construction; there is no package-level state.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	site    site
	monitor pipeline
	cfg     *config.Config
	log     *slog.Logger
	prompts *urlPrompts
}

// New creates a Bot around an already connected Telegram API handle. The
// handle is shared with the notifier, so the caller owns its construction.
func New(api *tgbotapi.BotAPI, store storage.Storage, site site, monitor pipeline, cfg *config.Config, log *slog.Logger) *Bot {
	return newBot(api, store, site, monitor, cfg, log)
}

func newBot(api telegramAPI, store storage.Storage, site site, monitor pipeline, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		store:   store,
		site:    site,
		monitor: monitor,
		cfg:     cfg,
		log:     log,
		prompts: newURLPrompts(),
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		cb := update.CallbackQuery
		if !b.authorize(ctx, cb.From.ID, cb.Message.Chat.ID) {
			return
		}
		b.handleCallback(ctx, cb)
		return
	}
	if update.Message == nil {
		return
	}
	msg := update.Message
	if !b.authorize(ctx, msg.From.ID, msg.Chat.ID) {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID, "user_id", userID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(ctx, chatID, userID)
	case "add":
		b.handleAdd(ctx, chatID, args)
	case "cancel":
		b.handleCancel(chatID)
	case "list":
		b.handleList(ctx, chatID)
	case "subscribe":
		b.handleSubscribe(ctx, chatID, userID)
	case "status":
		b.handleStatus(ctx, chatID, userID)
	case "update":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleUpdateURL(ctx, chatID, args)
		}
	case "check":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleCheck(ctx, chatID)
		}
	case "users":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleUsers(ctx, chatID)
		}
	case "adduser":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleAddUser(ctx, chatID, args)
		}
	case "userdel":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleDeleteUser(ctx, chatID, userID, args)
		}
	case "makeadmin":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleMakeAdmin(ctx, chatID, args)
		}
	case "removeadmin":
		if b.requireAdmin(ctx, userID, chatID) {
			b.handleRemoveAdmin(ctx, chatID, userID, args)
		}
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}
