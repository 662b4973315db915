package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string

	JWTSecret string
	TokenTTL  time.Duration

	StoreDriver string
	DatabaseURL string
	BadgerDir   string

	RedisAddr     string
	RedisPassword string

	PriceAPIURL    string
	PriceCacheTTL  time.Duration
	TickerInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// MailProvider is "plunk", "smtp" or "log".
	MailProvider string
	SMTP         SMTPConfig
	Plunk        PlunkConfig
	MailReplyTo  string
	AppURL       string

	AuthRateLimit        float64
	AdminBootstrapSecret string
}

type PlunkConfig struct {
	APIKey string
	From   string
	APIURL string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port != "" && s.From != ""
}

const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"

	MailPlunk = "plunk"
	MailSMTP  = "smtp"
	MailLog   = "log"
)

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		AppEnv:        getenv("APP_ENV", "production"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BadgerDir:     getenv("BADGER_DIR", "data/badger"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		PriceAPIURL:   os.Getenv("PRICE_API_URL"),
		KafkaTopic:    getenv("KAFKA_TOPIC", "ledger.events"),
		MailReplyTo:   os.Getenv("MAIL_REPLY_TO"),
		AppURL:        getenv("APP_URL", "http://localhost:8080"),

		AdminBootstrapSecret: os.Getenv("ADMIN_BOOTSTRAP_SECRET"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Plunk: PlunkConfig{
			APIKey: os.Getenv("PLUNK_API_KEY"),
			From:   os.Getenv("PLUNK_FROM"),
			APIURL: os.Getenv("PLUNK_API_URL"),
		},
	}
	cfg.MailProvider = strings.ToLower(os.Getenv("MAIL_PROVIDER"))
	if cfg.MailProvider == "" {
		switch {
		case cfg.Plunk.APIKey != "":
			cfg.MailProvider = MailPlunk
		case cfg.SMTP.Configured():
			cfg.MailProvider = MailSMTP
		default:
			cfg.MailProvider = MailLog
		}
	}

	if cfg.DatabaseURL == "" && os.Getenv("DB_HOST") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			getenv("DB_PORT", "5432"),
			os.Getenv("DB_NAME"),
		)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PriceCacheTTL, err = durationEnv("PRICE_CACHE_TTL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TickerInterval, err = durationEnv("TICKER_INTERVAL", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimit, err = floatEnv("AUTH_RATE_LIMIT", 20); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL or DB_HOST is required for the postgres store")
		}
	case DriverBadger:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MailProvider {
	case MailPlunk:
		if c.Plunk.APIKey == "" {
			return errors.New("PLUNK_API_KEY is required for the plunk mail provider")
		}
	case MailSMTP:
		if !c.SMTP.Configured() {
			return errors.New("SMTP_HOST, SMTP_PORT and SMTP_FROM are required for the smtp mail provider")
		}
	case MailLog:
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}
	return nil
}

func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
