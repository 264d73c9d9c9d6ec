package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every tunable the bridge recognizes, parsed from environment
// variables and validated once at startup. Nothing downstream reads the
// environment directly.
type Config struct {
	// ibkr.* — broker endpoint and session identity.
	BrokerKeyID     string // BROKER_API_KEY_ID
	BrokerSecretKey string // BROKER_API_SECRET_KEY
	BrokerBaseURL   string // BROKER_BASE_URL
	BrokerAccount   string // BROKER_ACCOUNT

	// trading.*
	DefaultQuantity          int64 // TRADING_DEFAULT_QUANTITY
	MaxPositionSize          int64 // TRADING_MAX_POSITION_SIZE
	EnablePreMarket          bool  // TRADING_ENABLE_PRE_MARKET
	EnablePostMarket         bool  // TRADING_ENABLE_POST_MARKET
	LimitOrderTimeoutMinutes int   // TRADING_LIMIT_ORDER_TIMEOUT_MINUTES
	MaxResubmissions         int   // TRADING_MAX_RESUBMISSIONS
	SweepIntervalSeconds     int   // TRADING_SWEEP_INTERVAL_SECONDS

	// market_hours.* — HH:MM in the exchange timezone.
	PreMarketStart string
	MarketOpen     string
	MarketClose    string
	PostMarketEnd  string
	ExchangeTZ     string

	// security.*
	WebhookSecret string
	AllowedIPs    []string

	// Ambient: logging, HTTP, notifications.
	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int
	HTTPPort      int
	MetricsPort   int

	TelegramBotToken string
	TelegramChatID   string
}

// Load reads a local .env (if present), checks the required broker secrets,
// and populates a Config with documented defaults applied.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment only")
	}

	requiredSecretVars := []string{
		"BROKER_API_KEY_ID",
		"BROKER_API_SECRET_KEY",
		"BROKER_BASE_URL",
	}

	var missing []string
	for _, key := range requiredSecretVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	cfg := &Config{
		BrokerKeyID:     os.Getenv("BROKER_API_KEY_ID"),
		BrokerSecretKey: os.Getenv("BROKER_API_SECRET_KEY"),
		BrokerBaseURL:   os.Getenv("BROKER_BASE_URL"),
		BrokerAccount:   getEnv("BROKER_ACCOUNT", ""),

		DefaultQuantity:          getEnvAsInt64("TRADING_DEFAULT_QUANTITY", 100),
		MaxPositionSize:          getEnvAsInt64("TRADING_MAX_POSITION_SIZE", 1000),
		EnablePreMarket:          getEnvAsBool("TRADING_ENABLE_PRE_MARKET", false),
		EnablePostMarket:         getEnvAsBool("TRADING_ENABLE_POST_MARKET", false),
		LimitOrderTimeoutMinutes: getEnvAsInt("TRADING_LIMIT_ORDER_TIMEOUT_MINUTES", 5),
		MaxResubmissions:         getEnvAsInt("TRADING_MAX_RESUBMISSIONS", 3),
		SweepIntervalSeconds:     getEnvAsInt("TRADING_SWEEP_INTERVAL_SECONDS", 300),

		PreMarketStart: getEnv("MARKET_HOURS_PRE_MARKET_START", "04:00"),
		MarketOpen:     getEnv("MARKET_HOURS_MARKET_OPEN", "09:30"),
		MarketClose:    getEnv("MARKET_HOURS_MARKET_CLOSE", "16:00"),
		PostMarketEnd:  getEnv("MARKET_HOURS_POST_MARKET_END", "20:00"),
		ExchangeTZ:     getEnv("MARKET_HOURS_TIMEZONE", "America/New_York"),

		WebhookSecret: os.Getenv("SECURITY_WEBHOOK_SECRET"),
		AllowedIPs:    getEnvAsList("SECURITY_ALLOWED_IPS"),

		LogLevel:      getEnv("WATCHER_LOG_LEVEL", "info"),
		LogFile:       getEnv("WATCHER_LOG_FILE", "bridge.log"),
		MaxLogSizeMB:  getEnvAsInt64("WATCHER_MAX_LOG_SIZE_MB", 5),
		MaxLogBackups: getEnvAsInt("WATCHER_MAX_LOG_BACKUPS", 3),
		HTTPPort:      getEnvAsInt("WEBHOOK_PORT", 8080),
		MetricsPort:   getEnvAsInt("METRICS_PORT", 9090),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("configuration loaded: log_level=%s max_position_size=%d max_resubmissions=%d timeout=%dm",
		cfg.LogLevel, cfg.MaxPositionSize, cfg.MaxResubmissions, cfg.LimitOrderTimeoutMinutes)

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultQuantity <= 0 {
		return fmt.Errorf("trading.default_quantity must be positive, got %d", c.DefaultQuantity)
	}
	if c.MaxPositionSize <= 0 {
		return fmt.Errorf("trading.max_position_size must be positive, got %d", c.MaxPositionSize)
	}
	if c.LimitOrderTimeoutMinutes <= 0 {
		return fmt.Errorf("trading.limit_order_timeout_minutes must be positive, got %d", c.LimitOrderTimeoutMinutes)
	}
	if c.MaxResubmissions < 0 {
		return fmt.Errorf("trading.max_resubmissions must be non-negative, got %d", c.MaxResubmissions)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt(valueStr, fallback)
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt64(valueStr, fallback)
}

func parseInt(s string, fallback int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("invalid int for config %q, using default %d", s, fallback)
		return fallback
	}
	return val
}

func parseInt64(s string, fallback int64) int64 {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("invalid int64 for config %q, using default %d", s, fallback)
		return fallback
	}
	return val
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for config %s, using default %v", key, fallback)
		return fallback
	}
	return val
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
