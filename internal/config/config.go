package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Terminal-state policies for order transitions.
const (
	TerminalPolicyNoop      = "noop"
	TerminalPolicyOverwrite = "overwrite"
)

// Config holds application configuration values.
type Config struct {
	AppPort     string `env:"APP_PORT,default=8080"`
	StoreDriver string `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBLogLevel  string `env:"DB_LOG_LEVEL,default=warn"`
	SeedCatalog bool   `env:"SEED_CATALOG,default=true"`

	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramAPIURL        string `env:"TELEGRAM_API_URL"`
	TelegramAdminID       string `env:"ADMIN_TELEGRAM_ID,required"`
	TelegramWebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	TelegramWebhookURL    string `env:"TELEGRAM_WEBHOOK_URL"`

	InitDataMaxAge      time.Duration `env:"INIT_DATA_MAX_AGE,default=24h"`
	OrderTerminalPolicy string        `env:"ORDER_TERMINAL_POLICY,default=noop"`
	OrderRateLimit      float64       `env:"ORDER_RATE_LIMIT,default=1"`
	OrderRateBurst      int           `env:"ORDER_RATE_BURST,default=5"`
	CORSAllowOrigins    string        `env:"CORS_ALLOW_ORIGINS,default=*"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
	LogFile   string `env:"LOG_FILE"`

	// AdminChatID is TelegramAdminID parsed for outbound messages.
	AdminChatID int64
}

// Load reads environment variables (and an optional .env file) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.TelegramAdminID = strings.TrimSpace(c.TelegramAdminID)
	adminID, err := strconv.ParseInt(c.TelegramAdminID, 10, 64)
	if err != nil {
		return fmt.Errorf("ADMIN_TELEGRAM_ID must be a numeric chat id: %w", err)
	}
	c.AdminChatID = adminID
	c.TelegramAdminID = strconv.FormatInt(adminID, 10)

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.OrderTerminalPolicy {
	case TerminalPolicyNoop, TerminalPolicyOverwrite:
	default:
		return fmt.Errorf("unknown ORDER_TERMINAL_POLICY %q", c.OrderTerminalPolicy)
	}

	if c.InitDataMaxAge < 0 {
		return errors.New("INIT_DATA_MAX_AGE must not be negative")
	}

	return nil
}

// AllowOrigins returns the CORS origin list in the form fiber's cors middleware expects.
func (c *Config) AllowOrigins() string {
	parts := strings.Split(c.CORSAllowOrigins, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ",")
}
