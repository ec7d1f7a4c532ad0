package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data values. Page actions carry the page id after the colon.
const (
	cbBackToList = "back_to_list"
	cbAddURL     = "add_url"
	cbCancelAdd  = "cancel_add"

	cbPagePrefix    = "page:"
	cbDeletePrefix  = "delete:"
	cbRefreshPrefix = "refresh:"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Ack first so the button stops spinning even if the action fails.
	if _, err := b.api.Send(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug("ack callback", "error", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	b.log.Debug("callback", "data", data, "chat_id", chatID)

	switch {
	case data == cbBackToList:
		b.showList(ctx, chatID, msgID)
	case data == cbAddURL:
		b.prompts.arm(chatID)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelAdd),
			),
		)
		b.editMessage(chatID, msgID, "Send me the link to monitor:", markup)
	case data == cbCancelAdd:
		b.prompts.cancel(chatID)
		b.showList(ctx, chatID, msgID)
	case strings.HasPrefix(data, cbPagePrefix):
		b.showPage(ctx, chatID, msgID, strings.TrimPrefix(data, cbPagePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		b.deletePage(ctx, chatID, msgID, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbRefreshPrefix):
		b.refreshPage(ctx, chatID, msgID, strings.TrimPrefix(data, cbRefreshPrefix))
	default:
		b.log.Warn("unknown callback", "data", data)
	}
}

func (b *Bot) showList(ctx context.Context, chatID int64, msgID int) {
	pages, err := b.store.ListPages(ctx)
	if err != nil {
		b.editMessage(chatID, msgID, fmt.Sprintf("Error: %v", err), tgbotapi.InlineKeyboardMarkup{})
		return
	}
	if len(pages) == 0 {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Add", cbAddURL),
			),
		)
		b.editMessage(chatID, msgID, "No pages are monitored yet.", markup)
		return
	}
	b.editMessage(chatID, msgID, listTitle(b.cfg.CheckIntervalMinutes), pagesListMarkup(pages))
}

// showPage renders the page detail view with a live edit date fetched from
// the site, falling back to the stored one when the fetch fails.
func (b *Bot) showPage(ctx context.Context, chatID int64, msgID int, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	page, err := b.store.GetPage(ctx, id)
	if err != nil {
		b.editMessage(chatID, msgID, fmt.Sprintf("Page #%s not found.", rawID), backToListMarkup())
		return
	}

	liveDate := ""
	if content, err := b.site.PageContent(ctx, page.URL); err != nil {
		b.log.Warn("fetch page for detail view", "page_id", id, "error", err)
	} else {
		liveDate = b.site.EditDate(content)
	}

	b.editMessage(chatID, msgID, formatPageDetail(*page, liveDate), pageDetailMarkup(*page))
}

func (b *Bot) deletePage(ctx context.Context, chatID int64, msgID int, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	page, err := b.store.GetPage(ctx, id)
	if err != nil {
		b.editMessage(chatID, msgID, fmt.Sprintf("Page #%s not found.", rawID), backToListMarkup())
		return
	}
	if err := b.store.DeletePage(ctx, id); err != nil {
		b.editMessage(chatID, msgID, fmt.Sprintf("Error: %v", err), backToListMarkup())
		return
	}
	b.log.Info("page deleted", "page_id", id, "title", page.Title)
	b.editMessage(chatID, msgID, fmt.Sprintf("Page %q deleted.", page.Title), backToListMarkup())
}

// refreshPage re-fetches the page's edit date on demand and stamps
// last_checked, without going through the full update pipeline.
func (b *Bot) refreshPage(ctx context.Context, chatID int64, msgID int, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	page, err := b.store.GetPage(ctx, id)
	if err != nil {
		b.editMessage(chatID, msgID, fmt.Sprintf("Page #%s not found.", rawID), backToListMarkup())
		return
	}

	liveDate := ""
	if content, err := b.site.PageContent(ctx, page.URL); err != nil {
		b.log.Warn("refresh page", "page_id", id, "error", err)
	} else {
		liveDate = b.site.EditDate(content)
		if err := b.store.UpdateLastChecked(ctx, id); err != nil {
			b.log.Error("update last checked", "page_id", id, "error", err)
		}
		refreshed, err := b.store.GetPage(ctx, id)
		if err != nil {
			b.log.Error("reload page", "page_id", id, "error", err)
		} else {
			page = refreshed
		}
	}

	b.editMessage(chatID, msgID, formatPageDetail(*page, liveDate), pageDetailMarkup(*page))
}

func (b *Bot) editMessage(chatID int64, msgID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	if len(markup.InlineKeyboard) > 0 {
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("edit message", "chat_id", chatID, "error", err)
	}
}
