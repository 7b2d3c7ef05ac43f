package models

import (
	"fmt"
	"time"
)

// Config holds every setting of the alerting bot
type Config struct {
	Exchange            string   `json:"exchange"`             // exchange name used in logs and e-mails, e.g. "binance"
	BaseURL             string   `json:"base_url,omitempty"`   // REST base URL override, empty means the library default
	QuoteAssets         []string `json:"quote_assets"`         // quote assets to scan, e.g. ["EUR"]
	Interval            string   `json:"interval"`             // kline interval the RSI is computed on
	RSIPeriod           int      `json:"rsi_period"`           // RSI lookback
	OverboughtThreshold float64  `json:"overbought_threshold"` // rsi >= threshold is overbought
	OversoldThreshold   float64  `json:"oversold_threshold"`   // rsi <= threshold is oversold
	KlineLimit          int      `json:"kline_limit"`          // number of klines fetched per pair
	Concurrency         int      `json:"concurrency"`          // parallel RSI fetches
	PairTimeoutSec      int      `json:"pair_timeout_sec"`     // per-pair fetch timeout
	TradeURLTemplate    string   `json:"trade_url_template"`   // fmt template taking the pair, linked in e-mails

	StateBackend string `json:"state_backend"` // "file" or "badger"
	StateFile    string `json:"state_file"`    // JSON document path for the file backend
	BadgerPath   string `json:"badger_path"`   // database dir for the badger backend

	MetricsFile string `json:"metrics_file,omitempty"` // optional prometheus textfile output

	Email     EmailConfig `json:"email"`
	LogConfig LogConfig   `json:"log"`
}

// PairTimeout returns the per-pair timeout as a duration.
func (c *Config) PairTimeout() time.Duration {
	return time.Duration(c.PairTimeoutSec) * time.Second
}

// TradeURL returns the exchange page linked for the given pair.
func (c *Config) TradeURL(pair string) string {
	if c.TradeURLTemplate == "" {
		return ""
	}
	return fmt.Sprintf(c.TradeURLTemplate, pair)
}

// EmailConfig defines the SMTP settings of the e-mail notifier
type EmailConfig struct {
	SMTPHost        string `json:"smtp_host"`
	SMTPPort        int    `json:"smtp_port"`
	SenderAddress   string `json:"sender_address"`
	SenderPassword  string `json:"-"` // only ever read from the environment
	ReceiverAddress string `json:"receiver_address"`
}

// Configured reports whether both credentials and a recipient are present.
func (e EmailConfig) Configured() bool {
	return e.SenderAddress != "" && e.SenderPassword != "" && e.ReceiverAddress != ""
}

// LogConfig defines the logging settings
type LogConfig struct {
	Level      string `json:"level"`       // log level, e.g. "debug", "info", "warn", "error"
	Output     string `json:"output"`      // output mode: "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of a single log file (MB)
	MaxBackups int    `json:"max_backups"` // max number of rotated files kept
	MaxAge     int    `json:"max_age"`     // max days a rotated file is kept
	Compress   bool   `json:"compress"`    // gzip rotated files
}

// RSICheck is the outcome of one RSI evaluation for a trading pair
type RSICheck struct {
	TradingPair string  `json:"tradingPair"`
	RSIVal      float64 `json:"rsiVal"`
	Oversold    bool    `json:"overSold"`
	Overbought  bool    `json:"overBought"`
}

// OversoldPair is one entry of the alert sent to the notifier
type OversoldPair struct {
	TradingPair string  `json:"tradingPair"`
	RSIVal      float64 `json:"rsiVal"`
}
