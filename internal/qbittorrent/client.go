// Package qbittorrent is a minimal client for the qBittorrent Web API,
// used to hand downloaded torrent files to a running qBittorrent instance.
package qbittorrent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the gateway settings.
type Config struct {
	Enabled  bool
	BaseURL  string
	Username string
	Password string
	Category string
	SavePath string
}

// Client talks to the qBittorrent Web API. When disabled by configuration
// every operation is a logged no-op.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New creates a Client. The qBittorrent host is usually on the local network,
// so requests deliberately bypass any configured proxy.
func New(cfg Config, log *slog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				Proxy: nil, // never proxy gateway traffic
			},
		},
		log: log,
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc.Jar == nil {
		hc.Jar = c.http.Jar
	}
	c.http = hc
}

// Enabled reports whether the gateway is active.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Ping verifies connectivity and credentials by logging in and reading the
// application version. Used as a startup probe when the gateway is enabled.
func (c *Client) Ping(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/api/v2/app/version", http.NoBody)
	if err != nil {
		return fmt.Errorf("create version request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query version: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("version probe: unexpected status %d", resp.StatusCode)
	}
	version, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	c.log.Info("qbittorrent reachable", "version", strings.TrimSpace(string(version)))
	return nil
}

// Upload submits a torrent file to qBittorrent and reports whether the
// submission was acknowledged. Failures are logged, never propagated: a
// broken gateway must not fail the update pipeline.
func (c *Client) Upload(ctx context.Context, filePath string) bool {
	if !c.cfg.Enabled {
		c.log.Debug("qbittorrent upload disabled, skipping", "file", filePath)
		return false
	}

	if err := c.login(ctx); err != nil {
		c.log.Error("qbittorrent login failed", "error", err)
		return false
	}

	if err := c.addTorrent(ctx, filePath); err != nil {
		c.log.Error("qbittorrent upload failed", "file", filePath, "error", err)
		return false
	}

	c.log.Info("torrent submitted to qbittorrent", "file", filepath.Base(filePath))
	return true
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{
		"username": {c.cfg.Username},
		"password": {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) addTorrent(ctx context.Context, filePath string) error {
	f, err := os.Open(filePath) //nolint:gosec // path derived from the page id
	if err != nil {
		return fmt.Errorf("open torrent file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("torrents", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read torrent file: %w", err)
	}
	if c.cfg.Category != "" {
		if err := w.WriteField("category", c.cfg.Category); err != nil {
			return fmt.Errorf("write category field: %w", err)
		}
	}
	if c.cfg.SavePath != "" {
		if err := w.WriteField("savepath", c.cfg.SavePath); err != nil {
			return fmt.Errorf("write savepath field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v2/torrents/add", &buf)
	if err != nil {
		return fmt.Errorf("create add request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("add request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("add rejected: status %d", resp.StatusCode)
	}
	return nil
}
