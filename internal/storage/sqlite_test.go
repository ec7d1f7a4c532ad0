package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"telemonitorrent/internal/model"
)

var ignoreLastChecked = cmpopts.IgnoreFields(model.Page{}, "LastChecked")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", "", t.TempDir())
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAddPage(t *testing.T, s *SQLite, title, url string) int64 {
	t.Helper()
	res, err := s.AddPage(context.Background(), title, url)
	if err != nil {
		t.Fatalf("add page %q: %v", url, err)
	}
	if res.ExistingID != 0 {
		t.Fatalf("add page %q: unexpected duplicate of %d", url, res.ExistingID)
	}
	return res.ID
}

func TestAddPage(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	res, err := s.AddPage(ctx, "Series One", "https://example.org/t1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.ID != 1 {
		t.Fatalf("expected id 1, got %d", res.ID)
	}

	got, err := s.GetPage(ctx, res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.Page{ID: 1, Title: "Series One", URL: "https://example.org/t1"}
	if diff := cmp.Diff(want, *got, ignoreLastChecked); diff != "" {
		t.Errorf("GetPage mismatch (-want +got):\n%s", diff)
	}
}

func TestAddPageDuplicateURL(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	id := mustAddPage(t, s, "Series One", "https://example.org/t1")

	res, err := s.AddPage(ctx, "Other Title", "https://example.org/t1")
	if err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	if res.ExistingID != id {
		t.Fatalf("expected existing id %d, got %d", id, res.ExistingID)
	}
	if res.Title != "Series One" {
		t.Errorf("expected original title, got %q", res.Title)
	}
	if res.ID != 0 {
		t.Errorf("expected no new row, got id %d", res.ID)
	}

	pages, err := s.ListPages(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
}

func TestIDReuseAfterDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for i, url := range []string{"https://a.org/1", "https://a.org/2", "https://a.org/3"} {
		if id := mustAddPage(t, s, "P", url); id != int64(i+1) {
			t.Fatalf("expected sequential id %d, got %d", i+1, id)
		}
	}

	if err := s.DeletePage(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if id := mustAddPage(t, s, "P", "https://a.org/4"); id != 2 {
		t.Errorf("expected freed id 2 to be reused, got %d", id)
	}
	if id := mustAddPage(t, s, "P", "https://a.org/5"); id != 4 {
		t.Errorf("expected next id 4, got %d", id)
	}
}

func TestDeletePageRemovesTorrentFile(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	id := mustAddPage(t, s, "Series", "https://example.org/t1")

	path := s.TorrentPath(id)
	if filepath.Base(path) != "1.torrent" {
		t.Fatalf("unexpected torrent filename: %s", path)
	}
	if err := os.WriteFile(path, []byte("d8:announce0:e"), 0o600); err != nil {
		t.Fatalf("write torrent: %v", err)
	}

	if err := s.DeletePage(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected torrent file to be removed, stat err: %v", err)
	}

	if _, err := s.GetPage(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Deleting a page without a torrent file must succeed too.
	id2 := mustAddPage(t, s, "Series", "https://example.org/t2")
	if err := s.DeletePage(ctx, id2); err != nil {
		t.Errorf("delete without file: %v", err)
	}
}

func TestUpdatePageURL(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	id1 := mustAddPage(t, s, "One", "https://a.org/1")
	mustAddPage(t, s, "Two", "https://a.org/2")

	tests := []struct {
		name   string
		id     int64
		newURL string
		want   UpdateURLResult
	}{
		{
			name:   "plain move",
			id:     id1,
			newURL: "https://a.org/moved",
			want:   UpdateURLResult{OK: true},
		},
		{
			name:   "same url as itself",
			id:     id1,
			newURL: "https://a.org/moved",
			want:   UpdateURLResult{OK: true},
		},
		{
			name:   "clash with another page",
			id:     id1,
			newURL: "https://a.org/2",
			want:   UpdateURLResult{ConflictID: 2, ConflictTitle: "Two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdatePageURL(ctx, tt.id, tt.newURL)
			if err != nil {
				t.Fatalf("update url: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UpdatePageURL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdatePageDateAndLastChecked(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	id := mustAddPage(t, s, "Series", "https://example.org/t1")

	before, err := s.GetPage(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if before.EditDate != "" || before.LastChecked != "" {
		t.Fatalf("expected empty date columns, got %+v", before)
	}

	if err := s.UpdatePageDate(ctx, id, "01-янв-25 10:00"); err != nil {
		t.Fatalf("update date: %v", err)
	}
	if err := s.UpdateLastChecked(ctx, id); err != nil {
		t.Fatalf("update last checked: %v", err)
	}

	after, err := s.GetPage(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.EditDate != "01-янв-25 10:00" {
		t.Errorf("expected stored edit date, got %q", after.EditDate)
	}
	if after.LastChecked == "" {
		t.Error("expected last_checked to be stamped")
	}
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if n, err := s.CountUsers(ctx); err != nil || n != 0 {
		t.Fatalf("expected empty users table, n=%d err=%v", n, err)
	}
	if _, err := s.GetUser(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	users := []model.User{
		{ID: 100, IsAdmin: true, Subscribed: true},
		{ID: 200, IsAdmin: false, Subscribed: true},
		{ID: 300, IsAdmin: false, Subscribed: false},
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user %d: %v", u.ID, err)
		}
	}

	got, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if diff := cmp.Diff(users, got); diff != "" {
		t.Errorf("ListUsers mismatch (-want +got):\n%s", diff)
	}

	subs, err := s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if diff := cmp.Diff(users[:2], subs); diff != "" {
		t.Errorf("ListSubscribers mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetUserAdmin(ctx, 200, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := s.SetUserSubscribed(ctx, 100, false); err != nil {
		t.Fatalf("set subscribed: %v", err)
	}

	u, err := s.GetUser(ctx, 200)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.IsAdmin {
		t.Error("expected user 200 to be admin")
	}
	u, err = s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Subscribed {
		t.Error("expected user 100 to be unsubscribed")
	}

	if err := s.DeleteUser(ctx, 300); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if n, _ := s.CountUsers(ctx); n != 2 {
		t.Errorf("expected 2 users after delete, got %d", n)
	}
}

func TestSeparateUsersDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pagesPath := filepath.Join(dir, "pages.db")
	usersPath := filepath.Join(dir, "users.db")

	s, err := NewSQLite(pagesPath, usersPath, dir)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	mustAddPage(t, s, "Series", "https://example.org/t1")
	if err := s.CreateUser(ctx, model.User{ID: 100, IsAdmin: true, Subscribed: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// The user row lands in the users file, not next to the pages.
	usersDB, err := sql.Open("sqlite", usersPath)
	if err != nil {
		t.Fatalf("open users db: %v", err)
	}
	t.Cleanup(func() { _ = usersDB.Close() })

	var n int
	if err := usersDB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count users in users db: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 user in the users db, got %d", n)
	}

	pagesDB, err := sql.Open("sqlite", pagesPath)
	if err != nil {
		t.Fatalf("open pages db: %v", err)
	}
	t.Cleanup(func() { _ = pagesDB.Close() })

	if err := pagesDB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count users in pages db: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users in the pages db, got %d", n)
	}
	if err := pagesDB.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 page in the pages db, got %d", n)
	}

	u, err := s.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.IsAdmin || !u.Subscribed {
		t.Errorf("unexpected user flags: %+v", u)
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
