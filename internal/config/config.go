package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Imgur    ImgurConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
}

// ImgurConfig holds credentials and endpoint settings for the image host.
type ImgurConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// AuthConfig groups authentication related settings.
type AuthConfig struct {
	Session SessionConfig
}

// SessionConfig controls session cookie behavior.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Level string
}

// Load inspects the environment and builds a Config value. A .env file in
// the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 0),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 0),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), 0),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 0),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Imgur = ImgurConfig{
		AccessToken: strings.TrimSpace(os.Getenv("IMGUR_ACCESS_TOKEN")),
		BaseURL: firstNonEmpty(
			os.Getenv("IMGUR_BASE_URL"),
			"https://api.imgur.com",
		),
		Timeout: parseDurationWithDefault(os.Getenv("IMGUR_TIMEOUT"), 30*time.Second),
	}

	cfg.Auth = AuthConfig{
		Session: SessionConfig{
			Lifetime:     parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 12*time.Hour),
			CookieName:   firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "treetrack_session"),
			CookieDomain: strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
			CookieSecure: parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), true),
		},
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return def
	}
	return parsed
}
