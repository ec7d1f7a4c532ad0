// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	BotToken             string
	CheckIntervalMinutes int
	LogLevel             string

	TrackerUsername string
	TrackerPassword string

	FileDir      string
	DatabasePath string
	UsersDBPath  string

	NotificationsEnabled bool

	UseProxy   bool
	HTTPProxy  string
	HTTPSProxy string

	QBittorrentEnabled  bool
	QBittorrentURL      string
	QBittorrentUsername string
	QBittorrentPassword string
	QBittorrentCategory string
	QBittorrentSavePath string
}

// Load reads configuration from the environment, seeding it from a .env file
// when one exists in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		NotificationsEnabled: envBool("NOTIFICATIONS_ENABLED", true),
		UseProxy:             envBool("USE_PROXY", false),
		HTTPProxy:            os.Getenv("HTTP_PROXY"),
		HTTPSProxy:           os.Getenv("HTTPS_PROXY"),
		QBittorrentEnabled:   envBool("QBITTORRENT_ENABLED", false),
		QBittorrentURL:       os.Getenv("QBITTORRENT_URL"),
		QBittorrentUsername:  envOrDefault("QBITTORRENT_USERNAME", "admin"),
		QBittorrentPassword:  envOrDefault("QBITTORRENT_PASSWORD", "adminadmin"),
		QBittorrentCategory:  os.Getenv("QBITTORRENT_CATEGORY"),
		QBittorrentSavePath:  os.Getenv("QBITTORRENT_SAVE_PATH"),
	}

	var err error
	if cfg.BotToken, err = requireEnv("BOT_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.TrackerUsername, err = requireEnv("RUTRACKER_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.TrackerPassword, err = requireEnv("RUTRACKER_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.FileDir, err = requireEnv("FILE_DIR"); err != nil {
		return nil, err
	}
	if cfg.DatabasePath, err = requireEnv("DB_PATH"); err != nil {
		return nil, err
	}
	cfg.UsersDBPath = envOrDefault("USERS_DB_PATH", cfg.DatabasePath)

	rawInterval, err := requireEnv("CHECK_INTERVAL")
	if err != nil {
		return nil, err
	}
	cfg.CheckIntervalMinutes, err = strconv.Atoi(rawInterval)
	if err != nil || cfg.CheckIntervalMinutes < 1 {
		return nil, fmt.Errorf("CHECK_INTERVAL must be a positive number of minutes, got %q", rawInterval)
	}

	if cfg.UseProxy && (cfg.HTTPProxy == "" || cfg.HTTPSProxy == "") {
		return nil, fmt.Errorf("USE_PROXY is enabled but HTTP_PROXY or HTTPS_PROXY is not set")
	}
	if cfg.QBittorrentEnabled && cfg.QBittorrentURL == "" {
		return nil, fmt.Errorf("QBITTORRENT_ENABLED is set but QBITTORRENT_URL is not")
	}

	return cfg, nil
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
