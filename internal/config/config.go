package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigMissing is returned when a required setting is absent.
var ErrConfigMissing = errors.New("config missing")

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Identity sources used after the token exchange.
const (
	IdentityUserInfo = "userinfo"
	IdentityIDToken  = "idtoken"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Config holds the configuration for the application.
type Config struct {
	Env  string
	Port string

	// OAuth Config
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	AuthURL            string
	TokenURL           string
	UserInfoURL        string
	IdentitySource     string
	HTTPTimeout        time.Duration

	// Session Config
	SessionSecret string
	SessionTTL    time.Duration

	// Storage Config
	StoreBackend string
	DataFile     string
	DatabasePath string

	// Telegram Config (optional, enables sharing exported lists)
	TelegramBotToken string
	TelegramChatID   int64

	RecommendationCount int
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("OAUTH_AUTH_URL", googleAuthURL)
	v.SetDefault("OAUTH_TOKEN_URL", googleTokenURL)
	v.SetDefault("OAUTH_USERINFO_URL", googleUserInfoURL)
	v.SetDefault("IDENTITY_SOURCE", IdentityUserInfo)
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("STORE_BACKEND", BackendFile)
	v.SetDefault("DATA_FILE", "data/all_users_data.json")
	v.SetDefault("DATABASE_PATH", "data/grocery.db")
	v.SetDefault("RECOMMENDATION_COUNT", 5)

	cfg := &Config{
		Env:              v.GetString("APP_ENV"),
		Port:             v.GetString("PORT"),
		AuthURL:          v.GetString("OAUTH_AUTH_URL"),
		TokenURL:         v.GetString("OAUTH_TOKEN_URL"),
		UserInfoURL:      v.GetString("OAUTH_USERINFO_URL"),
		SessionSecret:    v.GetString("SESSION_SECRET"),
		DataFile:         v.GetString("DATA_FILE"),
		DatabasePath:     v.GetString("DATABASE_PATH"),
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.GoogleClientID, err = required(v, "GOOGLE_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.GoogleClientSecret, err = required(v, "GOOGLE_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.RedirectURL, err = required(v, "OAUTH_REDIRECT_URL"); err != nil {
		return nil, err
	}

	cfg.IdentitySource = strings.ToLower(v.GetString("IDENTITY_SOURCE"))
	if cfg.IdentitySource != IdentityUserInfo && cfg.IdentitySource != IdentityIDToken {
		return nil, fmt.Errorf("IDENTITY_SOURCE must be %q or %q, got %q", IdentityUserInfo, IdentityIDToken, cfg.IdentitySource)
	}

	cfg.StoreBackend = strings.ToLower(v.GetString("STORE_BACKEND"))
	if cfg.StoreBackend != BackendFile && cfg.StoreBackend != BackendSQLite {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendFile, BackendSQLite, cfg.StoreBackend)
	}

	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration(v, "SESSION_TTL"); err != nil {
		return nil, err
	}

	if raw := v.GetString("TELEGRAM_CHAT_ID"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &cfg.TelegramChatID); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	}

	cfg.RecommendationCount = v.GetInt("RECOMMENDATION_COUNT")
	if cfg.RecommendationCount <= 0 {
		return nil, fmt.Errorf("RECOMMENDATION_COUNT must be positive, got %q", v.GetString("RECOMMENDATION_COUNT"))
	}

	return cfg, nil
}

// SharingEnabled reports whether exported lists can be sent to Telegram.
func (c *Config) SharingEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func required(v *viper.Viper, key string) (string, error) {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return "", fmt.Errorf("%w: %s environment variable not set", ErrConfigMissing, key)
	}
	return val, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}
