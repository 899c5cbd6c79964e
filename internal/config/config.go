package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Twitter API（コンシューマキーペア。ユーザーごとのアクセストークンはDBに保存する）
	TwitterAPIKey    string
	TwitterAPISecret string

	// Email delivery (Resend)
	ResendAPIKey string
	FromEmail    string

	// Digest
	DigestHour        int           // 日次ダイジェストの配信時刻（0-23、UTC）
	DigestWindowHours int           // 対象ツイートの時間窓（時間）
	TimelinePageSize  int           // タイムライン取得の最大件数
	FetchTimeout      time.Duration // タイムラインAPIのHTTPタイムアウト
	SendTimeout       time.Duration // メール配信APIのHTTPタイムアウト

	// Session
	SessionMaxAge int

	// Rate Limit
	RateLimitGeneral int
	RateLimitDigest  int

	// Retention
	LogRetentionDays int

	// Server
	ServerPort  string
	BaseURL     string
	FrontendURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TwitterAPIKey = os.Getenv("TWITTER_API_KEY")
	if cfg.TwitterAPIKey == "" {
		missing = append(missing, "TWITTER_API_KEY")
	}

	cfg.TwitterAPISecret = os.Getenv("TWITTER_API_SECRET")
	if cfg.TwitterAPISecret == "" {
		missing = append(missing, "TWITTER_API_SECRET")
	}

	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	if cfg.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FromEmail = getEnvString("FROM_EMAIL", "Twitter Digest <noreply@tweetdigest.example>")
	cfg.DigestHour = getEnvInt("DIGEST_HOUR", 8)
	if cfg.DigestHour < 0 || cfg.DigestHour > 23 {
		return nil, fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", cfg.DigestHour)
	}
	cfg.DigestWindowHours = getEnvInt("DIGEST_WINDOW_HOURS", 24)
	cfg.TimelinePageSize = getEnvInt("TIMELINE_PAGE_SIZE", 100)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.SendTimeout = getEnvDuration("SEND_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitDigest = getEnvInt("RATE_LIMIT_DIGEST", 5)
	cfg.LogRetentionDays = getEnvInt("LOG_RETENTION_DAYS", 90)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.FrontendURL = getEnvString("FRONTEND_URL", "http://localhost:5173")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.FrontendURL)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
