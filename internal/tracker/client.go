// Package tracker implements an authenticated client for the rutracker forum.
//
// One Client owns one logged-in session. All network calls go through a shared
// rate limiter so concurrent callers cannot hammer the site, and successful
// page fetches are cached by URL until ClearCache is called.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	// DefaultBaseURL is the forum root all endpoints are resolved against.
	DefaultBaseURL = "https://rutracker.org/forum/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	defaultTimeout    = 30 * time.Second
	defaultRequestGap = 2 * time.Second

	// sessionTTL is how long a verified session is trusted before the next
	// liveness probe. The site expires sessions server-side without warning.
	sessionTTL = 30 * time.Minute

	maxBodySize = 10 * 1024 * 1024
)

// ErrLoginFailed indicates the site rejected the configured credentials.
var ErrLoginFailed = errors.New("tracker login failed")

// Client is an authenticated rutracker session.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	password string
	log      *slog.Logger

	// reqMu serializes all network calls; the site is one shared resource.
	reqMu       sync.Mutex
	lastRequest time.Time
	requestGap  time.Duration
	loggedIn    bool
	verifiedAt  time.Time

	cacheMu sync.Mutex
	cache   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL overrides the forum root URL.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithRequestGap overrides the minimum delay between requests.
func WithRequestGap(d time.Duration) Option {
	return func(c *Client) { c.requestGap = d }
}

// New creates a Client. The session is established lazily on first use.
func New(username, password string, log *slog.Logger, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
		baseURL:    DefaultBaseURL,
		username:   username,
		password:   password,
		log:        log,
		requestGap: defaultRequestGap,
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c
}

// ProxyTransport returns a transport that routes plain HTTP through httpProxy
// and HTTPS through httpsProxy.
func ProxyTransport(httpProxy, httpsProxy string) (http.RoundTripper, error) {
	hu, err := url.Parse(httpProxy)
	if err != nil {
		return nil, fmt.Errorf("parse http proxy: %w", err)
	}
	su, err := url.Parse(httpsProxy)
	if err != nil {
		return nil, fmt.Errorf("parse https proxy: %w", err)
	}
	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" {
				return su, nil
			}
			return hu, nil
		},
	}, nil
}

// ValidateProxy performs a reachability probe through the given proxy URL.
// Called at startup so that a misconfigured proxy fails fast instead of
// breaking every later request.
func ValidateProxy(ctx context.Context, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("parse proxy url %q: %w", proxyURL, err)
	}
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(u)},
		Timeout:   5 * time.Second,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://httpbin.org/ip", http.NoBody)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("proxy %q unreachable: %w", proxyURL, err)
	}
	_ = resp.Body.Close()
	return nil
}

// Login authenticates against the forum. Retried with backoff since the
// login endpoint is the flakiest part of the site.
func (c *Client) Login(ctx context.Context) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	err := retry.Do(
		func() error { return c.postLogin(ctx) },
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying tracker login", "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			// Rejected credentials will not improve on retry.
			return !errors.Is(err, ErrLoginFailed)
		}),
	)
	if err != nil {
		return err
	}
	c.loggedIn = true
	c.verifiedAt = time.Now()
	c.log.Info("tracker login successful", "user", c.username)
	return nil
}

func (c *Client) postLogin(ctx context.Context) error {
	form := url.Values{
		"login_username": {c.username},
		"login_password": {c.password},
		"login":          {"вход"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"login.php", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	body, err := c.doLocked(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if !strings.Contains(body, "logged-in") && !strings.Contains(body, "logout") {
		return ErrLoginFailed
	}
	return nil
}

// alive probes the forum index and reports whether the session cookie is
// still accepted server-side.
func (c *Client) alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"index.php", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	body, err := c.doLocked(req)
	if err != nil {
		c.log.Warn("session probe failed", "error", err)
		return false
	}
	return strings.Contains(body, "logout")
}

// ensureSessionLocked logs in on first use and re-authenticates when a
// liveness probe shows the session has been invalidated server-side.
func (c *Client) ensureSessionLocked(ctx context.Context) error {
	if c.loggedIn && time.Since(c.verifiedAt) < sessionTTL {
		return nil
	}
	if c.loggedIn {
		if c.alive(ctx) {
			c.verifiedAt = time.Now()
			return nil
		}
		c.log.Info("tracker session expired, re-authenticating")
		c.loggedIn = false
	}
	return c.loginLocked(ctx)
}

// doLocked enforces the inter-request delay, performs the request, and reads
// the body. The delay is measured from the end of the previous request.
// Callers must hold reqMu.
func (c *Client) doLocked(req *http.Request) (string, error) {
	if wait := c.requestGap - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	resp, err := c.http.Do(req)
	c.lastRequest = time.Now()
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// PageContent fetches a page as the logged-in user. Successful fetches are
// cached by URL until ClearCache.
func (c *Client) PageContent(ctx context.Context, pageURL string) (string, error) {
	c.cacheMu.Lock()
	if body, ok := c.cache[pageURL]; ok {
		c.cacheMu.Unlock()
		return body, nil
	}
	c.cacheMu.Unlock()

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := c.ensureSessionLocked(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	body, err := c.doLocked(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	c.cacheMu.Lock()
	c.cache[pageURL] = body
	c.cacheMu.Unlock()
	return body, nil
}

// ClearCache drops all cached page bodies. The monitor calls this at the
// start of every batch so a run never compares against stale content.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	c.cache = make(map[string]string)
	c.cacheMu.Unlock()
}

// DownloadTorrent fetches pageURL fresh, locates its torrent download link,
// and streams the torrent file to dest, creating parent directories.
func (c *Client) DownloadTorrent(ctx context.Context, pageURL, dest string) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := c.ensureSessionLocked(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	body, err := c.doLocked(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	href, err := findDownloadLink(body)
	if err != nil {
		return fmt.Errorf("page %s: %w", pageURL, err)
	}
	downloadURL := c.baseURL + href

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	dlReq.Header.Set("User-Agent", userAgent)

	if wait := c.requestGap - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	resp, err := c.http.Do(dlReq)
	c.lastRequest = time.Now()
	if err != nil {
		return fmt.Errorf("download torrent: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download torrent: unexpected status %d", resp.StatusCode)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create torrent directory: %w", err)
		}
	}
	f, err := os.Create(dest) //nolint:gosec // dest is derived from the page id
	if err != nil {
		return fmt.Errorf("create torrent file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("write torrent file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close torrent file: %w", err)
	}

	c.log.Info("torrent downloaded", "url", pageURL, "path", dest)
	return nil
}
