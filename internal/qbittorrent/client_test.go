package qbittorrent

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/h2non/gock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c := New(cfg, discardLogger())
	hc := &http.Client{}
	gock.InterceptClient(hc)
	c.SetHTTPClient(hc)
	t.Cleanup(gock.Off)
	return c
}

func writeTorrent(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "1.torrent")
	if err := os.WriteFile(path, []byte("d8:announce0:e"), 0o600); err != nil {
		t.Fatalf("write torrent: %v", err)
	}
	return path
}

func TestUploadDisabled(t *testing.T) {
	c := newTestClient(t, Config{Enabled: false})

	if c.Upload(context.Background(), "/tmp/whatever.torrent") {
		t.Error("disabled client must report false without touching the network")
	}
	if c.Enabled() {
		t.Error("Enabled must report false")
	}
}

func TestUpload(t *testing.T) {
	cfg := Config{
		Enabled:  true,
		BaseURL:  "http://qb.local:8080",
		Username: "admin",
		Password: "adminadmin",
		Category: "tv",
	}
	c := newTestClient(t, cfg)

	gock.New("http://qb.local:8080").
		Post("/api/v2/auth/login").
		Reply(200).
		BodyString("Ok.")
	gock.New("http://qb.local:8080").
		Post("/api/v2/torrents/add").
		MatchHeader("Content-Type", "multipart/form-data.*").
		Reply(200).
		BodyString("Ok.")

	if !c.Upload(context.Background(), writeTorrent(t)) {
		t.Fatal("expected upload to succeed")
	}
	if !gock.IsDone() {
		t.Error("not all expected requests were made")
	}
}

func TestUploadLoginRejected(t *testing.T) {
	cfg := Config{Enabled: true, BaseURL: "http://qb.local:8080", Username: "admin", Password: "wrong"}
	c := newTestClient(t, cfg)

	gock.New("http://qb.local:8080").
		Post("/api/v2/auth/login").
		Reply(403)

	if c.Upload(context.Background(), writeTorrent(t)) {
		t.Error("expected upload to fail on rejected login")
	}
}

func TestUploadAddRejected(t *testing.T) {
	cfg := Config{Enabled: true, BaseURL: "http://qb.local:8080", Username: "admin", Password: "adminadmin"}
	c := newTestClient(t, cfg)

	gock.New("http://qb.local:8080").
		Post("/api/v2/auth/login").
		Reply(200)
	gock.New("http://qb.local:8080").
		Post("/api/v2/torrents/add").
		Reply(415)

	if c.Upload(context.Background(), writeTorrent(t)) {
		t.Error("expected upload to fail when the add call is rejected")
	}
}

func TestUploadMissingFile(t *testing.T) {
	cfg := Config{Enabled: true, BaseURL: "http://qb.local:8080", Username: "admin", Password: "adminadmin"}
	c := newTestClient(t, cfg)

	gock.New("http://qb.local:8080").
		Post("/api/v2/auth/login").
		Reply(200)

	if c.Upload(context.Background(), "/nonexistent/1.torrent") {
		t.Error("expected upload to fail for a missing file")
	}
}

func TestPing(t *testing.T) {
	cfg := Config{Enabled: true, BaseURL: "http://qb.local:8080", Username: "admin", Password: "adminadmin"}
	c := newTestClient(t, cfg)

	gock.New("http://qb.local:8080").
		Post("/api/v2/auth/login").
		Reply(200)
	gock.New("http://qb.local:8080").
		Get("/api/v2/app/version").
		Reply(200).
		BodyString("v5.0.1")

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPingDisabled(t *testing.T) {
	c := newTestClient(t, Config{Enabled: false})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("disabled ping must be a no-op, got %v", err)
	}
}
