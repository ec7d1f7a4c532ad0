package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telemonitorrent/internal/model"
	"telemonitorrent/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("List", cbBackToList),
			tgbotapi.NewInlineKeyboardButtonData("Add", cbAddURL),
		),
	)
	b.replyMarkup(chatID, `Hi! I monitor release pages on rutracker so you don't miss anything.

Send me a link to a series and I'll warn you about new episodes and download the updates to disk.`, markup)
}

func (b *Bot) handleHelp(ctx context.Context, chatID, userID int64) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		b.log.Error("look up user", "user_id", userID, "error", err)
		b.reply(chatID, userHelp)
		return
	}
	if user.IsAdmin {
		b.reply(chatID, adminHelp)
		return
	}
	b.reply(chatID, userHelp)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.prompts.arm(chatID)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelAdd),
			),
		)
		b.replyMarkup(chatID, "Send me the link to monitor:", markup)
		return
	}
	b.addPageFromURL(ctx, chatID, args)
}

// addPageFromURL is the shared tail of the /add command, the add button flow
// and plain-text URLs: fetch the title, create the row, prime marker and
// torrent.
func (b *Bot) addPageFromURL(ctx context.Context, chatID int64, url string) {
	content, err := b.site.PageContent(ctx, url)
	if err != nil {
		b.log.Error("fetch page for add", "url", url, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to fetch the page: %v", err))
		return
	}
	title := b.site.Title(content)

	res, err := b.store.AddPage(ctx, title, url)
	if err != nil {
		b.log.Error("add page", "url", url, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to save the page: %v", err))
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to list", cbBackToList),
			tgbotapi.NewInlineKeyboardButtonData("Add another", cbAddURL),
		),
	)

	if res.ExistingID != 0 {
		b.log.Info("duplicate page add attempt", "url", url, "existing_id", res.ExistingID)
		b.replyMarkup(chatID, fmt.Sprintf(
			"This link is already monitored as %q (ID: %d).", res.Title, res.ExistingID), markup)
		return
	}

	if err := b.monitor.SeedPage(ctx, res.ID, url); err != nil {
		b.log.Error("seed new page", "page_id", res.ID, "error", err)
	}

	b.log.Info("page added", "page_id", res.ID, "title", title, "url", url)
	b.replyMarkup(chatID, fmt.Sprintf("Page %q added for monitoring (ID: %d).", title, res.ID), markup)
}

func (b *Bot) handleCancel(chatID int64) {
	b.prompts.cancel(chatID)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to list", cbBackToList),
		),
	)
	b.replyMarkup(chatID, "Adding a link cancelled.", markup)
}

// handleText consumes the AwaitingURL state: the next plain message after
// the add prompt is treated as the URL to monitor.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}
	if !b.prompts.consume(msg.Chat.ID) {
		return
	}
	b.addPageFromURL(ctx, msg.Chat.ID, msg.Text)
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	pages, err := b.store.ListPages(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(pages) == 0 {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Add", cbAddURL),
			),
		)
		b.replyMarkup(chatID, "No pages are monitored yet.", markup)
		return
	}
	b.replyMarkup(chatID, listTitle(b.cfg.CheckIntervalMinutes), pagesListMarkup(pages))
}

func (b *Bot) handleUpdateURL(ctx context.Context, chatID int64, args string) {
	id, newURL, err := parseUpdateArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /update <id> <url>")
		return
	}

	res, err := b.store.UpdatePageURL(ctx, id, newURL)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !res.OK {
		b.reply(chatID, fmt.Sprintf(
			"This link is already monitored as %q (ID: %d).", res.ConflictTitle, res.ConflictID))
		return
	}
	b.log.Info("page url updated", "page_id", id, "url", newURL)
	b.reply(chatID, fmt.Sprintf("Link for page #%d updated.", id))
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	b.reply(chatID, "Checking tracked pages for updates...")

	found, err := b.monitor.CheckPages(ctx, "")
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to list", cbBackToList),
		),
	)
	if found {
		b.replyMarkup(chatID, "Check finished. Updates found!", markup)
	} else {
		b.replyMarkup(chatID, "Check finished. No updates.", markup)
	}
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID, userID int64) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	subscribed := !user.Subscribed
	if err := b.store.SetUserSubscribed(ctx, userID, subscribed); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if subscribed {
		b.reply(chatID, "You are subscribed to update notifications.")
	} else {
		b.reply(chatID, "You are unsubscribed from update notifications.")
	}
	b.log.Info("subscription toggled", "user_id", userID, "subscribed", subscribed)
}

func (b *Bot) handleStatus(ctx context.Context, chatID, userID int64) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, formatStatus(*user))
}

func (b *Bot) handleUsers(ctx context.Context, chatID int64) {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(users) == 0 {
		b.reply(chatID, "No registered users.")
		return
	}
	b.reply(chatID, formatUserList(users))
}

func (b *Bot) handleAddUser(ctx context.Context, chatID int64, args string) {
	target, isAdmin, subscribed, err := parseAddUserArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /adduser <id> [admin 0|1] [sub 0|1]")
		return
	}

	if existing, err := b.store.GetUser(ctx, target); err == nil {
		b.reply(chatID, fmt.Sprintf("User %d already exists. Admin: %s, subscribed: %s.",
			target, yesNo(existing.IsAdmin), yesNo(existing.Subscribed)))
		return
	}

	user := model.User{ID: target, IsAdmin: isAdmin, Subscribed: subscribed}
	if err := b.store.CreateUser(ctx, user); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.log.Info("user registered", "user_id", target, "admin", isAdmin, "subscribed", subscribed)
	b.reply(chatID, fmt.Sprintf("User %d added. Admin: %s, subscribed: %s.",
		target, yesNo(isAdmin), yesNo(subscribed)))
}

func (b *Bot) handleDeleteUser(ctx context.Context, chatID, userID int64, args string) {
	target, err := parseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /userdel <id>")
		return
	}
	if target == userID {
		b.reply(chatID, "You cannot delete your own account.")
		return
	}
	if _, err := b.store.GetUser(ctx, target); err != nil {
		b.reply(chatID, fmt.Sprintf("User %d not found.", target))
		return
	}
	if err := b.store.DeleteUser(ctx, target); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.log.Info("user deleted", "user_id", target)
	b.reply(chatID, fmt.Sprintf("User %d deleted.", target))
}

func (b *Bot) handleMakeAdmin(ctx context.Context, chatID int64, args string) {
	target, err := parseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /makeadmin <id>")
		return
	}
	if _, err := b.store.GetUser(ctx, target); errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("User %d not found.", target))
		return
	} else if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if err := b.store.SetUserAdmin(ctx, target, true); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.log.Info("admin rights granted", "user_id", target)
	b.reply(chatID, fmt.Sprintf("User %d is now an administrator.", target))
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, chatID, userID int64, args string) {
	target, err := parseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /removeadmin <id>")
		return
	}
	if target == userID {
		b.reply(chatID, "You cannot revoke your own administrator rights.")
		return
	}
	if _, err := b.store.GetUser(ctx, target); errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("User %d not found.", target))
		return
	} else if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if err := b.store.SetUserAdmin(ctx, target, false); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.log.Info("admin rights revoked", "user_id", target)
	b.reply(chatID, fmt.Sprintf("User %d is no longer an administrator.", target))
}
