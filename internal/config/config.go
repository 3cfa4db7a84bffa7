package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// 送料・税の計算定数。注文確定時に一度だけ使う。
type Pricing struct {
	FreeShippingThreshold int64 // これ以上で送料無料
	ShippingFee           int64 // 無料ラインに届かないときの送料
	TaxRatePercent        int64 // 税率（%、端数は切り捨て）
}

// 通知アウトボックスのチューニング。
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSで使う）

	Pricing Pricing
	Outbox  Outbox

	AWSRegion string // SES用
	MailFrom  string
}

// Loadは環境変数から読み込む
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: os.Getenv("GO_ENV"),
		FEURL: getenv("FE_URL", ""),

		Pricing: Pricing{
			FreeShippingThreshold: envInt64("FREE_SHIPPING_THRESHOLD", 10000),
			ShippingFee:           envInt64("SHIPPING_FEE", 500),
			TaxRatePercent:        envInt64("TAX_RATE_PERCENT", 10),
		},

		Outbox: Outbox{
			PollInterval: time.Duration(envInt64("OUTBOX_POLL_INTERVAL_SEC", 5)) * time.Second,
			BatchSize:    int(envInt64("OUTBOX_BATCH_SIZE", 20)),
			MaxAttempts:  int(envInt64("OUTBOX_MAX_ATTEMPTS", 5)),
		},

		AWSRegion: getenv("AWS_REGION", "ap-northeast-1"),
		MailFrom:  getenv("MAIL_FROM", "noreply@example.com"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	if cfg.Pricing.FreeShippingThreshold < 0 || cfg.Pricing.ShippingFee < 0 {
		return Config{}, fmt.Errorf("shipping constants must be >= 0")
	}
	if cfg.Pricing.TaxRatePercent < 0 || cfg.Pricing.TaxRatePercent > 100 {
		return Config{}, fmt.Errorf("TAX_RATE_PERCENT must be 0-100")
	}

	return cfg, nil
}

// DefaultPricingはテストや開発用の既定値。
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: 10000,
		ShippingFee:           500,
		TaxRatePercent:        10,
	}
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}
