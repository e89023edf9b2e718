package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort  string `validate:"required,numeric"`
	BaseURL     string `validate:"required,url"`
	FrontendURL string `validate:"required,url"`

	// Telegram（トークンが空ならボットは起動しない）
	TelegramBotToken    string
	TelegramPollTimeout int `validate:"min=1"`

	// Token
	DirectTokenTTL   time.Duration `validate:"gt=0"`
	RedeemedTokenTTL time.Duration `validate:"gt=0"`

	// Payment
	PaymentMode        string `validate:"oneof=registered direct"`
	ConfirmationMode   string `validate:"oneof=json redirect"`
	DefaultRedirectURL string `validate:"required,url"`

	// Calculator
	StrictBranches bool

	// CORS
	CORSAllowedOrigin string `validate:"required"`

	// Rate Limit（1分あたり）
	RateLimitCalculate int `validate:"min=1"`
	RateLimitPayment   int `validate:"min=1"`

	// Cleanup（空なら一括削除ジョブを起動しない）
	TokenSweepSchedule string

	// Observability
	MetricsEnabled bool
	LogLevel       string `validate:"oneof=debug info warn error"`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込まれる。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	if cfg.FrontendURL == "" {
		missing = append(missing, "FRONTEND_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "3001")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramPollTimeout = getEnvInt("TELEGRAM_POLL_TIMEOUT", 60)
	cfg.DirectTokenTTL = getEnvDuration("DIRECT_TOKEN_TTL", 24*time.Hour)
	cfg.RedeemedTokenTTL = getEnvDuration("REDEEMED_TOKEN_TTL", 720*time.Hour)
	cfg.PaymentMode = strings.ToLower(getEnvString("PAYMENT_MODE", "registered"))
	cfg.ConfirmationMode = strings.ToLower(getEnvString("CONFIRMATION_MODE", "json"))
	cfg.DefaultRedirectURL = getEnvString("DEFAULT_REDIRECT_URL", strings.TrimRight(cfg.FrontendURL, "/")+"/calculator")
	cfg.StrictBranches = getEnvBool("STRICT_BRANCHES", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.RateLimitCalculate = getEnvInt("RATE_LIMIT_CALCULATE", 60)
	cfg.RateLimitPayment = getEnvInt("RATE_LIMIT_PAYMENT", 20)
	cfg.TokenSweepSchedule = os.Getenv("TOKEN_SWEEP_SCHEDULE")
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
