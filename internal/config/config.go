package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	ClientURL   string   `mapstructure:"CLIENT_URL"`

	SupabaseJWTSecret string `mapstructure:"SUPABASE_JWT_SECRET"`
	DevClinicID       string `mapstructure:"DEV_CLINIC_ID"`

	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	TwilioAccountSID  string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `mapstructure:"TWILIO_PHONE_NUMBER"`

	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel  string `mapstructure:"OPENAI_MODEL"`

	PaystackSecretKey string  `mapstructure:"PAYSTACK_SECRET_KEY"`
	USDToNGN          float64 `mapstructure:"USD_TO_NGN"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	DispatchCron   string `mapstructure:"DISPATCH_CRON"`
	SummaryCron    string `mapstructure:"SUMMARY_CRON"`
	OverdueCron    string `mapstructure:"OVERDUE_CRON"`
	LogCleanupCron string `mapstructure:"LOG_CLEANUP_CRON"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("EMAIL_FROM", "CareSync <noreply@caresync.health>")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("USD_TO_NGN", 1600)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("DISPATCH_CRON", "0 9 * * *")
	v.SetDefault("SUMMARY_CRON", "0 18 * * *")
	v.SetDefault("OVERDUE_CRON", "0 */6 * * *")
	v.SetDefault("LOG_CLEANUP_CRON", "0 2 * * 0")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CLIENT_URL")
	v.BindEnv("SUPABASE_JWT_SECRET")
	v.BindEnv("DEV_CLINIC_ID")
	v.BindEnv("RESEND_API_KEY")
	v.BindEnv("EMAIL_FROM")
	v.BindEnv("TWILIO_ACCOUNT_SID")
	v.BindEnv("TWILIO_AUTH_TOKEN")
	v.BindEnv("TWILIO_PHONE_NUMBER")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_MODEL")
	v.BindEnv("PAYSTACK_SECRET_KEY")
	v.BindEnv("USD_TO_NGN")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("DISPATCH_CRON")
	v.BindEnv("SUMMARY_CRON")
	v.BindEnv("OVERDUE_CRON")
	v.BindEnv("LOG_CLEANUP_CRON")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; requests are not authenticated.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure SUPABASE_JWT_SECRET.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production,
// authentication and payment verification must be configured: requests are
// authorized by Supabase-issued JWTs, and Paystack webhooks are rejected
// without a secret key to verify their signatures against.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.SupabaseJWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required in production. " +
				"Refusing to start without authentication configuration")
		}
		if c.PaystackSecretKey == "" {
			return fmt.Errorf("PAYSTACK_SECRET_KEY is required in production")
		}
	}

	if c.USDToNGN <= 0 {
		return fmt.Errorf("USD_TO_NGN must be positive, got %v", c.USDToNGN)
	}

	for _, spec := range []struct{ name, expr string }{
		{"DISPATCH_CRON", c.DispatchCron},
		{"SUMMARY_CRON", c.SummaryCron},
		{"OVERDUE_CRON", c.OverdueCron},
		{"LOG_CLEANUP_CRON", c.LogCleanupCron},
	} {
		if strings.TrimSpace(spec.expr) == "" {
			return fmt.Errorf("%s must not be empty", spec.name)
		}
	}

	return nil
}
