package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverBadger, cfg.StoreDriver)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 60*time.Second, cfg.PriceCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, MailLog, cfg.MailProvider)
}

func TestLoadBuildsDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "fintrade")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:5432/fintrade", cfg.DatabaseURL)
}

func TestLoadPicksMailProvider(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("PLUNK_API_KEY", "pk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MailPlunk, cfg.MailProvider)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", "badger")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "forever")
	_, err = Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")

	cfg := Config{JWTSecret: "x", StoreDriver: DriverPostgres, MailProvider: MailLog}
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = Config{JWTSecret: "x", StoreDriver: DriverBadger, MailProvider: MailSMTP}
	assert.ErrorContains(t, cfg.Validate(), "SMTP_HOST")
}
