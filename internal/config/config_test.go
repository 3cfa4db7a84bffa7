package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yamadatarousan/ec-sub001/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "appdb")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("GO_ENV", "dev")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5432, cfg.PostgresPort)

	//送料・税のデフォルト
	assert.Equal(t, int64(10000), cfg.Pricing.FreeShippingThreshold)
	assert.Equal(t, int64(500), cfg.Pricing.ShippingFee)
	assert.Equal(t, int64(10), cfg.Pricing.TaxRatePercent)

	//アウトボックスのデフォルト
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
}

func TestLoad_PricingOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_SHIPPING_THRESHOLD", "20000")
	t.Setenv("SHIPPING_FEE", "800")
	t.Setenv("TAX_RATE_PERCENT", "8")

	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, int64(20000), cfg.Pricing.FreeShippingThreshold)
	assert.Equal(t, int64(800), cfg.Pricing.ShippingFee)
	assert.Equal(t, int64(8), cfg.Pricing.TaxRatePercent)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidPostgresPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTGRES_PORT", "not-a-number")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_TaxRateOutOfRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TAX_RATE_PERCENT", "101")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDefaultPricing(t *testing.T) {
	p := config.DefaultPricing()
	assert.Equal(t, int64(10000), p.FreeShippingThreshold)
	assert.Equal(t, int64(500), p.ShippingFee)
	assert.Equal(t, int64(10), p.TaxRatePercent)
}
