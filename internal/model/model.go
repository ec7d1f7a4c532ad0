// Package model defines the domain types used across the application.
package model

// Page represents one monitored release page.
type Page struct {
	ID          int64
	Title       string
	URL         string
	EditDate    string // opaque site-supplied edit marker, "" until first parsed
	LastChecked string // local time, "2006-01-02 15:04:05"
}

// User represents one Telegram user known to the bot.
type User struct {
	ID         int64
	IsAdmin    bool
	Subscribed bool
}
