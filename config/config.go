package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	OAuth    OAuthConfig
	Shop     ShopConfig
	Payment  PaymentConfig
	Webhook  WebhookConfig
	Media    MediaConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// ShopConfig holds the order-lifecycle knobs.
type ShopConfig struct {
	Currency                 string
	OrderTimeout             time.Duration // ORDER_TIMEOUT_MINUTES
	CancelGracePeriod        time.Duration // ORDER_CANCEL_GRACE_PERIOD_MINUTES
	UnderpaymentTolerancePct float64       // PAYMENT_UNDERPAYMENT_TOLERANCE_PERCENT
	LatePenaltyPct           float64       // PAYMENT_LATE_PENALTY_PERCENT
	UnderpaymentPenaltyPct   float64       // PAYMENT_UNDERPAYMENT_PENALTY_PERCENT
	MaxStrikesBeforeBan      int           // MAX_STRIKES_BEFORE_BAN
	SweepInterval            time.Duration
}

// PaymentConfig configures the external payment-processor client.
type PaymentConfig struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	WebhookBaseURL string // callback will be WebhookBaseURL + /api/v1/webhooks/payment
	UseStub        bool
}

// WebhookConfig protects the inbound settlement endpoint.
type WebhookConfig struct {
	Secret        string
	MaxBodyBytes  int64
	RatePerMinute int
	RateBurst     int
}

type MediaConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8099")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATABASE_DSN", "vendora:vendora@tcp(localhost:3306)/vendora?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("JWT_ACCESS_SECRET", "change-me-in-production")
	v.SetDefault("JWT_REFRESH_SECRET", "change-me-refresh")
	v.SetDefault("SHOP_CURRENCY", "USD")
	v.SetDefault("ORDER_TIMEOUT_MINUTES", 30)
	v.SetDefault("ORDER_CANCEL_GRACE_PERIOD_MINUTES", 5)
	v.SetDefault("PAYMENT_UNDERPAYMENT_TOLERANCE_PERCENT", 2.0)
	v.SetDefault("PAYMENT_LATE_PENALTY_PERCENT", 5.0)
	v.SetDefault("PAYMENT_UNDERPAYMENT_PENALTY_PERCENT", 5.0)
	v.SetDefault("MAX_STRIKES_BEFORE_BAN", 3)
	v.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1024)
	v.SetDefault("WEBHOOK_RATE_PER_MINUTE", 10)
	v.SetDefault("WEBHOOK_RATE_BURST", 10)
	v.SetDefault("PAYMENT_PROCESSOR_BASE_URL", "https://api.payprocessor.example.com")
	v.SetDefault("PAYMENT_WEBHOOK_BASE_URL", "https://shop.example.com")

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "vendora",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		},
		Shop: ShopConfig{
			Currency:                 v.GetString("SHOP_CURRENCY"),
			OrderTimeout:             time.Duration(v.GetInt("ORDER_TIMEOUT_MINUTES")) * time.Minute,
			CancelGracePeriod:        time.Duration(v.GetInt("ORDER_CANCEL_GRACE_PERIOD_MINUTES")) * time.Minute,
			UnderpaymentTolerancePct: v.GetFloat64("PAYMENT_UNDERPAYMENT_TOLERANCE_PERCENT"),
			LatePenaltyPct:           v.GetFloat64("PAYMENT_LATE_PENALTY_PERCENT"),
			UnderpaymentPenaltyPct:   v.GetFloat64("PAYMENT_UNDERPAYMENT_PENALTY_PERCENT"),
			MaxStrikesBeforeBan:      v.GetInt("MAX_STRIKES_BEFORE_BAN"),
			SweepInterval:            time.Duration(v.GetInt("SWEEP_INTERVAL_SECONDS")) * time.Second,
		},
		Payment: PaymentConfig{
			BaseURL:        v.GetString("PAYMENT_PROCESSOR_BASE_URL"),
			APIKey:         v.GetString("PAYMENT_PROCESSOR_API_KEY"),
			APISecret:      v.GetString("PAYMENT_PROCESSOR_API_SECRET"),
			WebhookBaseURL: v.GetString("PAYMENT_WEBHOOK_BASE_URL"),
			UseStub:        v.GetString("PAYMENT_PROCESSOR_API_KEY") == "",
		},
		Webhook: WebhookConfig{
			Secret:        v.GetString("PAYMENT_WEBHOOK_SECRET"),
			MaxBodyBytes:  v.GetInt64("WEBHOOK_MAX_BODY_BYTES"),
			RatePerMinute: v.GetInt("WEBHOOK_RATE_PER_MINUTE"),
			RateBurst:     v.GetInt("WEBHOOK_RATE_BURST"),
		},
		Media: MediaConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
		},
	}
}
