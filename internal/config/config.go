package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type BankCfg struct {
	BaseURL       string
	Username      string
	Password      string
	BankName      string
	BankCode      string // short code used by the QR quick-link renderer
	AccountNumber string
	AccountName   string
	Timeout       time.Duration
}

type PaymentCfg struct {
	WindowSeconds   int
	PollInterval    time.Duration
	ReferencePrefix string
}

type SecurityCfg struct {
	APIKey string // shared secret for all service endpoints
}

type Cfg struct {
	App     AppCfg
	DB      DBCfg
	Redis   RedisCfg
	Bank    BankCfg
	Payment PaymentCfg
	Sec     SecurityCfg
}

func Load() Cfg {
	// .env is optional; real deployments set process env directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("BANK_NAME", "MBBank")
	viper.SetDefault("BANK_CODE", "MB")
	viper.SetDefault("BANK_TIMEOUT_SECONDS", 8)
	viper.SetDefault("PAYMENT_WINDOW_SECONDS", 600)
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)
	viper.SetDefault("REFERENCE_PREFIX", "MBPAY")

	cfg := Cfg{
		App: AppCfg{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Bank: BankCfg{
			BaseURL:       strings.TrimRight(viper.GetString("BANK_BASE_URL"), "/"),
			Username:      viper.GetString("BANK_USERNAME"),
			Password:      viper.GetString("BANK_PASSWORD"),
			BankName:      viper.GetString("BANK_NAME"),
			BankCode:      viper.GetString("BANK_CODE"),
			AccountNumber: viper.GetString("BANK_ACCOUNT_NUMBER"),
			AccountName:   viper.GetString("BANK_ACCOUNT_NAME"),
			Timeout:       time.Duration(viper.GetInt("BANK_TIMEOUT_SECONDS")) * time.Second,
		},
		Payment: PaymentCfg{
			WindowSeconds:   viper.GetInt("PAYMENT_WINDOW_SECONDS"),
			PollInterval:    time.Duration(viper.GetInt("POLL_INTERVAL_SECONDS")) * time.Second,
			ReferencePrefix: viper.GetString("REFERENCE_PREFIX"),
		},
		Sec: SecurityCfg{APIKey: strings.TrimSpace(viper.GetString("API_KEY"))},
	}

	// Fail fast on required settings.
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Sec.APIKey == "" {
		log.Fatal().Msg("API_KEY is required")
	}
	if cfg.Bank.BaseURL == "" || cfg.Bank.Username == "" || cfg.Bank.Password == "" {
		log.Fatal().Msg("BANK_BASE_URL, BANK_USERNAME and BANK_PASSWORD are required")
	}
	if cfg.Bank.AccountNumber == "" {
		log.Fatal().Msg("BANK_ACCOUNT_NUMBER is required")
	}
	if cfg.Payment.WindowSeconds <= 0 {
		log.Fatal().Msg("PAYMENT_WINDOW_SECONDS must be positive")
	}
	return cfg
}
