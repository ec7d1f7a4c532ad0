package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"telemonitorrent/internal/model"
	"telemonitorrent/migrations"
)

const checkedLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by SQLite. The users table may live in a
// separate database file from the pages table. fileDir is the directory
// holding the downloaded "<id>.torrent" files, whose lifecycle is tied to the
// pages table.
type SQLite struct {
	db      *sql.DB // pages
	users   *sql.DB // users, equal to db when both tables share one file
	fileDir string
}

// NewSQLite opens the pages database at dsn and the users database at
// usersDSN, running pending migrations on each. An empty usersDSN (or one
// equal to dsn) keeps both tables in one file.
func NewSQLite(dsn, usersDSN, fileDir string) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}

	users := db
	if usersDSN != "" && usersDSN != dsn {
		users, err = openDB(usersDSN)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &SQLite{db: db, users: users, fileDir: fileDir}, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying database connections.
func (s *SQLite) Close() error {
	var usersErr error
	if s.users != s.db {
		usersErr = s.users.Close()
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	return usersErr
}

// TorrentPath returns the on-disk path of the torrent file for a page.
// The "<id>.torrent" convention is shared with DeletePage and the monitor.
func (s *SQLite) TorrentPath(id int64) string {
	return filepath.Join(s.fileDir, fmt.Sprintf("%d.torrent", id))
}

// AddPage inserts a page under the smallest free positive id. Adding a URL
// that is already tracked is not an error: the existing identity is returned
// instead and no row is created.
func (s *SQLite) AddPage(ctx context.Context, title, url string) (AddPageResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AddPageResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	var existingTitle string
	err = tx.QueryRowContext(ctx, `SELECT id, title FROM pages WHERE url = ?`, url).
		Scan(&existingID, &existingTitle)
	switch {
	case err == nil:
		return AddPageResult{Title: existingTitle, ExistingID: existingID}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return AddPageResult{}, fmt.Errorf("check url: %w", err)
	}

	id, err := firstAvailableID(ctx, tx)
	if err != nil {
		return AddPageResult{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pages (id, title, url) VALUES (?, ?, ?)`, id, title, url,
	); err != nil {
		return AddPageResult{}, fmt.Errorf("insert page: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AddPageResult{}, fmt.Errorf("commit: %w", err)
	}

	return AddPageResult{ID: id, Title: title}, nil
}

// firstAvailableID returns the smallest positive integer not used as a page
// id. Ids are deliberately reclaimed after deletes so that they stay small and
// keep matching previously downloaded torrent filenames.
func firstAvailableID(ctx context.Context, tx *sql.Tx) (int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM pages ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("query ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	next := int64(1)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan id: %w", err)
		}
		if id != next {
			break
		}
		next++
	}
	return next, rows.Err()
}

// GetPage returns a single page by its id.
func (s *SQLite) GetPage(ctx context.Context, id int64) (*model.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, url, date, last_checked FROM pages WHERE id = ?`, id,
	)
	return scanPage(row)
}

// ListPages returns all tracked pages ordered by id.
func (s *SQLite) ListPages(ctx context.Context) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, url, date, last_checked FROM pages ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []model.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// UpdatePageURL changes the URL of a page unless another page already tracks
// the new URL, in which case the clashing identity is reported.
func (s *SQLite) UpdatePageURL(ctx context.Context, id int64, newURL string) (UpdateURLResult, error) {
	var conflictID int64
	var conflictTitle string
	err := s.db.QueryRowContext(ctx, `SELECT id, title FROM pages WHERE url = ?`, newURL).
		Scan(&conflictID, &conflictTitle)
	switch {
	case err == nil && conflictID != id:
		return UpdateURLResult{ConflictID: conflictID, ConflictTitle: conflictTitle}, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return UpdateURLResult{}, fmt.Errorf("check url: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE pages SET url = ? WHERE id = ?`, newURL, id,
	); err != nil {
		return UpdateURLResult{}, fmt.Errorf("update url: %w", err)
	}
	return UpdateURLResult{OK: true}, nil
}

// UpdatePageDate persists a newly observed edit marker for a page.
func (s *SQLite) UpdatePageDate(ctx context.Context, id int64, date string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE pages SET date = ? WHERE id = ?`, date, id,
	); err != nil {
		return fmt.Errorf("update date: %w", err)
	}
	return nil
}

// UpdateLastChecked stamps a page with the current local time. Called for
// every check attempt, successful or not.
func (s *SQLite) UpdateLastChecked(ctx context.Context, id int64) error {
	now := time.Now().Format(checkedLayout)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE pages SET last_checked = ? WHERE id = ?`, now, id,
	); err != nil {
		return fmt.Errorf("update last checked: %w", err)
	}
	return nil
}

// DeletePage removes a page row together with its downloaded torrent file.
// A missing file is not an error.
func (s *SQLite) DeletePage(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if err := os.Remove(s.TorrentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove torrent file: %w", err)
	}
	return nil
}

// GetUser returns a user by Telegram id, or ErrNotFound.
func (s *SQLite) GetUser(ctx context.Context, id int64) (*model.User, error) {
	row := s.users.QueryRowContext(ctx,
		`SELECT id, is_admin, sub FROM users WHERE id = ?`, id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// ListUsers returns all registered users.
func (s *SQLite) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx, `SELECT id, is_admin, sub FROM users ORDER BY id`)
}

// ListSubscribers returns the users included in notification fan-out.
func (s *SQLite) ListSubscribers(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx, `SELECT id, is_admin, sub FROM users WHERE sub = 1 ORDER BY id`)
}

func (s *SQLite) queryUsers(ctx context.Context, query string) ([]model.User, error) {
	rows, err := s.users.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of registered users.
func (s *SQLite) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.users.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CreateUser registers a user, replacing any existing row with the same id.
func (s *SQLite) CreateUser(ctx context.Context, user model.User) error {
	if _, err := s.users.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, is_admin, sub) VALUES (?, ?, ?)`,
		user.ID, boolToInt(user.IsAdmin), boolToInt(user.Subscribed),
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SetUserAdmin updates the admin flag of a user.
func (s *SQLite) SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error {
	if _, err := s.users.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, boolToInt(isAdmin), id,
	); err != nil {
		return fmt.Errorf("update admin flag: %w", err)
	}
	return nil
}

// SetUserSubscribed updates the subscription flag of a user.
func (s *SQLite) SetUserSubscribed(ctx context.Context, id int64, subscribed bool) error {
	if _, err := s.users.ExecContext(ctx,
		`UPDATE users SET sub = ? WHERE id = ?`, boolToInt(subscribed), id,
	); err != nil {
		return fmt.Errorf("update sub flag: %w", err)
	}
	return nil
}

// DeleteUser removes a user.
func (s *SQLite) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.users.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPage(row scannable) (*model.Page, error) {
	var p model.Page
	var date, checked sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.URL, &date, &checked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	p.EditDate = date.String
	p.LastChecked = checked.String
	return &p, nil
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var isAdmin, sub int
	if err := row.Scan(&u.ID, &isAdmin, &sub); err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin == 1
	u.Subscribed = sub == 1
	return &u, nil
}
