// Package monitor implements the page update pipeline: fetch each tracked
// page, compare its edit marker against the stored one, and on change
// download the torrent, forward it to the torrent client, and notify
// subscribers.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"telemonitorrent/internal/model"
	"telemonitorrent/internal/storage"
)

// Site is the subset of the tracker client the pipeline drives.
type Site interface {
	PageContent(ctx context.Context, url string) (string, error)
	EditDate(html string) string
	DownloadTorrent(ctx context.Context, pageURL, dest string) error
	ClearCache()
}

// Uploader hands a downloaded torrent file to an external torrent client.
type Uploader interface {
	Upload(ctx context.Context, filePath string) bool
}

// Notifier broadcasts an update message to subscribers.
type Notifier interface {
	NotifySubscribers(ctx context.Context, text, buttonText, buttonURL string)
}

// Monitor orchestrates one round of update checks.
type Monitor struct {
	store    storage.Storage
	site     Site
	uploader Uploader
	notifier Notifier
	log      *slog.Logger
}

// New creates a Monitor.
func New(store storage.Storage, site Site, uploader Uploader, notifier Notifier, log *slog.Logger) *Monitor {
	return &Monitor{
		store:    store,
		site:     site,
		uploader: uploader,
		notifier: notifier,
		log:      log,
	}
}

// CheckPages checks every tracked page, or only the one matching targetURL
// when it is non-empty. A failure on one page never prevents the remaining
// pages from being checked, and every visited page gets its last-checked
// stamp updated whatever the outcome. Reports whether any page changed.
func (m *Monitor) CheckPages(ctx context.Context, targetURL string) (bool, error) {
	pages, err := m.store.ListPages(ctx)
	if err != nil {
		return false, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		m.log.Info("no pages to check")
		return false, nil
	}

	m.site.ClearCache()

	anyUpdate := false
	for _, page := range pages {
		if ctx.Err() != nil {
			return anyUpdate, ctx.Err()
		}
		if targetURL != "" && page.URL != targetURL {
			continue
		}

		if m.checkPage(ctx, page) {
			anyUpdate = true
		}

		if err := m.store.UpdateLastChecked(ctx, page.ID); err != nil {
			m.log.Error("update last checked", "page_id", page.ID, "error", err)
		}
	}

	if !anyUpdate {
		m.log.Info("no updates found")
	}
	return anyUpdate, nil
}

// checkPage runs the fetch-compare-act sequence for one page and reports
// whether its marker changed. All failures are logged and contained here.
func (m *Monitor) checkPage(ctx context.Context, page model.Page) bool {
	m.log.Debug("checking page", "page_id", page.ID, "title", page.Title)

	content, err := m.site.PageContent(ctx, page.URL)
	if err != nil {
		m.log.Error("fetch page", "page_id", page.ID, "url", page.URL, "error", err)
		return false
	}

	newDate := m.site.EditDate(content)
	if newDate == "" {
		m.log.Warn("no edit marker on page", "page_id", page.ID, "title", page.Title)
		return false
	}
	if newDate == page.EditDate {
		return false
	}

	m.log.Info("page update detected",
		"page_id", page.ID,
		"title", page.Title,
		"old_date", page.EditDate,
		"new_date", newDate,
	)

	if err := m.store.UpdatePageDate(ctx, page.ID, newDate); err != nil {
		m.log.Error("persist edit date", "page_id", page.ID, "error", err)
		return false
	}

	dest := m.store.TorrentPath(page.ID)
	if err := m.site.DownloadTorrent(ctx, page.URL, dest); err != nil {
		m.log.Error("download torrent", "page_id", page.ID, "error", err)
		return true
	}

	if !m.uploader.Upload(ctx, dest) {
		m.log.Warn("torrent not handed to client", "page_id", page.ID, "file", dest)
	}

	oldDate := page.EditDate
	if oldDate == "" {
		oldDate = "unset"
	}
	text := fmt.Sprintf(
		"<b>Update!</b>\nRelease: %s\nEdited: %s (was %s)\nPage #%d\n<a href=\"%s\">Release page</a>",
		page.Title, newDate, oldDate, page.ID, page.URL,
	)
	m.notifier.NotifySubscribers(ctx, text, "Open in browser", page.URL)

	return true
}

// SeedPage primes a freshly added page: it records the current edit marker
// and downloads the torrent, without notifying anyone. The page is stamped
// as checked even when the marker is absent.
func (m *Monitor) SeedPage(ctx context.Context, id int64, url string) error {
	content, err := m.site.PageContent(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}

	if date := m.site.EditDate(content); date != "" {
		if err := m.store.UpdatePageDate(ctx, id, date); err != nil {
			return fmt.Errorf("persist edit date: %w", err)
		}
		dest := m.store.TorrentPath(id)
		if err := m.site.DownloadTorrent(ctx, url, dest); err != nil {
			m.log.Error("download torrent for new page", "page_id", id, "error", err)
		}
	}

	if err := m.store.UpdateLastChecked(ctx, id); err != nil {
		return fmt.Errorf("update last checked: %w", err)
	}
	return nil
}
