package config

import (
	"binance-rsi-alerts/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env lists the settings read from the environment. Set values override
// the config file.
type Env struct {
	StateFile       string `envconfig:"PERSISTED_STATE_FILE"`
	SenderAddress   string `envconfig:"SENDER_EMAIL_ADDRESS"`
	SenderPassword  string `envconfig:"SENDER_EMAIL_PASSWORD"`
	ReceiverAddress string `envconfig:"RECEIVER_EMAIL_ADDRESS"`
	SMTPHost        string `envconfig:"SMTP_HOST"`
	SMTPPort        int    `envconfig:"SMTP_PORT"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
}

// Default returns the configuration used when no file is present.
func Default() *models.Config {
	return &models.Config{
		Exchange:            "binance",
		QuoteAssets:         []string{"EUR"},
		Interval:            "1d",
		RSIPeriod:           14,
		OverboughtThreshold: 70,
		OversoldThreshold:   40,
		KlineLimit:          100,
		Concurrency:         4,
		PairTimeoutSec:      30,
		TradeURLTemplate:    "https://www.binance.com/en/trade/%s?type=spot",
		StateBackend:        "file",
		StateFile:           "./state/saved/state.json",
		BadgerPath:          "./state/badger",
		Email: models.EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		LogConfig: models.LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "logs/alerts.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// It reports whether a file was loaded.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// LoadConfig reads the JSON config at path on top of Default, then applies
// the environment. A missing file is not an error.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := json.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *models.Config) error {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	setString(&cfg.StateFile, env.StateFile)
	setString(&cfg.Email.SenderAddress, env.SenderAddress)
	setString(&cfg.Email.SenderPassword, env.SenderPassword)
	setString(&cfg.Email.ReceiverAddress, env.ReceiverAddress)
	setString(&cfg.Email.SMTPHost, env.SMTPHost)
	setString(&cfg.LogConfig.Level, env.LogLevel)
	if env.SMTPPort != 0 {
		cfg.Email.SMTPPort = env.SMTPPort
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks cfg for settings the scanner cannot run with.
func Validate(cfg *models.Config) error {
	var errs []error
	if len(cfg.QuoteAssets) == 0 {
		errs = append(errs, errors.New("quote_assets must not be empty"))
	}
	if cfg.Interval == "" {
		errs = append(errs, errors.New("interval must be set"))
	}
	if cfg.RSIPeriod < 2 {
		errs = append(errs, fmt.Errorf("rsi_period must be at least 2, got %d", cfg.RSIPeriod))
	}
	if cfg.KlineLimit <= cfg.RSIPeriod {
		errs = append(errs, fmt.Errorf("kline_limit %d must exceed rsi_period %d", cfg.KlineLimit, cfg.RSIPeriod))
	}
	if cfg.OversoldThreshold >= cfg.OverboughtThreshold {
		errs = append(errs, fmt.Errorf("oversold_threshold %v must be below overbought_threshold %v",
			cfg.OversoldThreshold, cfg.OverboughtThreshold))
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency))
	}
	if cfg.PairTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("pair_timeout_sec must be positive, got %d", cfg.PairTimeoutSec))
	}
	switch cfg.StateBackend {
	case "file":
		if cfg.StateFile == "" {
			errs = append(errs, errors.New("state_file must be set for the file backend"))
		}
	case "badger":
		if cfg.BadgerPath == "" {
			errs = append(errs, errors.New("badger_path must be set for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state_backend %q", cfg.StateBackend))
	}
	return errors.Join(errs...)
}
