package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telemonitorrent/internal/model"
)

const userHelp = `Commands:
/list - monitored pages
/add <url> - add a page to monitor
/cancel - cancel adding a page
/subscribe - toggle update notifications
/status - your account status
/help - this message`

const adminHelp = userHelp + `

Admin commands:
/check - check all pages now
/update <id> <url> - replace a page's link
/users - registered users
/adduser <id> [admin 0|1] [sub 0|1] - register a user
/userdel <id> - remove a user
/makeadmin <id> - grant admin rights
/removeadmin <id> - revoke admin rights`

func listTitle(intervalMinutes int) string {
	return fmt.Sprintf("Monitored pages (checked every %d min). Tap one for details:", intervalMinutes)
}

// pagesListMarkup renders one button per page plus an Add row.
func pagesListMarkup(pages []model.Page) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pages)+1)
	for _, p := range pages {
		label := fmt.Sprintf("#%d %s", p.ID, p.Title)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbPagePrefix, p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Add", cbAddURL),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func pageDetailMarkup(page model.Page) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Open in browser", page.URL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Refresh", fmt.Sprintf("%s%d", cbRefreshPrefix, page.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Delete", fmt.Sprintf("%s%d", cbDeletePrefix, page.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to list", cbBackToList),
		),
	)
}

func formatPageDetail(page model.Page, liveDate string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s\n", page.ID, page.Title)
	fmt.Fprintf(&sb, "Stored edit date: %s\n", orUnset(page.EditDate))
	if liveDate != "" {
		fmt.Fprintf(&sb, "Edit date on site: %s\n", liveDate)
	}
	fmt.Fprintf(&sb, "Last checked: %s", orUnset(page.LastChecked))
	return sb.String()
}

func formatStatus(user model.User) string {
	return fmt.Sprintf("Your ID: %d\nAdministrator: %s\nSubscribed to notifications: %s",
		user.ID, yesNo(user.IsAdmin), yesNo(user.Subscribed))
}

func formatUserList(users []model.User) string {
	var sb strings.Builder
	sb.WriteString("Registered users:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "%d - admin: %s, subscribed: %s\n", u.ID, yesNo(u.IsAdmin), yesNo(u.Subscribed))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func backToListMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to list", cbBackToList),
		),
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return s
}
