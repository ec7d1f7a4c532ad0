// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"telemonitorrent/internal/model"
)

// AddPageResult reports the outcome of an AddPage call. When the URL was
// already tracked, ID is zero and ExistingID/Title identify the tracked page.
type AddPageResult struct {
	ID         int64
	Title      string
	ExistingID int64
}

// UpdateURLResult reports the outcome of an UpdatePageURL call. When the new
// URL clashes with another page, OK is false and ConflictID/ConflictTitle
// identify it.
type UpdateURLResult struct {
	OK            bool
	ConflictID    int64
	ConflictTitle string
}

// Storage is the interface for all persistence operations.
type Storage interface {
	AddPage(ctx context.Context, title, url string) (AddPageResult, error)
	GetPage(ctx context.Context, id int64) (*model.Page, error)
	ListPages(ctx context.Context) ([]model.Page, error)
	UpdatePageURL(ctx context.Context, id int64, newURL string) (UpdateURLResult, error)
	UpdatePageDate(ctx context.Context, id int64, date string) error
	UpdateLastChecked(ctx context.Context, id int64) error
	DeletePage(ctx context.Context, id int64) error
	TorrentPath(id int64) string

	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListSubscribers(ctx context.Context) ([]model.User, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user model.User) error
	SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error
	SetUserSubscribed(ctx context.Context, id int64, subscribed bool) error
	DeleteUser(ctx context.Context, id int64) error

	Close() error
}
