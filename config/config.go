// Package config loads and validates the forward-test configuration
// from YAML or JSON, with Telegram credentials overridable from the
// environment (.env supported).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"obtrader/market"
	"obtrader/strategy"
)

// Config is the complete forward-test configuration.
type Config struct {
	Exchange ExchangeConfig  `json:"exchange" yaml:"exchange"`
	Trading  TradingConfig   `json:"trading" yaml:"trading"`
	Strategy strategy.Config `json:"strategy" yaml:"strategy"`
	Feed     FeedConfig      `json:"feed" yaml:"feed"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Telegram TelegramConfig  `json:"telegram" yaml:"telegram"`
	Log      LogConfig       `json:"log" yaml:"log"`
}

// ExchangeConfig names the market being followed.
type ExchangeConfig struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	Timeframe string `json:"timeframe" yaml:"timeframe"`
}

// TradingConfig contains the account and cost model.
type TradingConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	RiskFraction   float64 `json:"risk_fraction" yaml:"risk_fraction"`
	Slippage       float64 `json:"slippage" yaml:"slippage"`
	Commission     float64 `json:"commission" yaml:"commission"`
	EquityEMA      int     `json:"equity_ema" yaml:"equity_ema"`
	HistoryDays    int     `json:"history_days" yaml:"history_days"`
}

// FeedConfig contains polling and retry parameters.
type FeedConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval"` // e.g. "20s"
	MaxRetries   int    `json:"max_retries" yaml:"max_retries"`
	RetryDelay   string `json:"retry_delay" yaml:"retry_delay"`
	BatchSize    int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// ParsePollInterval converts the poll interval string to a Duration.
func (f FeedConfig) ParsePollInterval() (time.Duration, error) {
	return time.ParseDuration(f.PollInterval)
}

// ParseRetryDelay converts the retry delay string to a Duration.
func (f FeedConfig) ParseRetryDelay() (time.Duration, error) {
	if f.RetryDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(f.RetryDelay)
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// TelegramConfig contains notification parameters. BotToken and
// ChatID may be left empty in the file and supplied through the
// TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID environment variables.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token,omitempty" yaml:"bot_token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
}

// LogConfig contains logging parameters.
type LogConfig struct {
	Dir   string `json:"dir" yaml:"dir"`
	Debug bool   `json:"debug" yaml:"debug"`
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content), applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays Telegram credentials from the environment. A .env
// file in the working directory is loaded first when present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange.symbol is required")
	}
	if _, err := market.ParseTimeframe(c.Exchange.Timeframe); err != nil {
		return fmt.Errorf("exchange.timeframe: %w", err)
	}
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("trading.initial_capital must be positive")
	}
	if c.Trading.RiskFraction <= 0 || c.Trading.RiskFraction > 1 {
		return fmt.Errorf("trading.risk_fraction must be between 0 and 1")
	}
	if c.Trading.Slippage < 0 || c.Trading.Commission < 0 {
		return fmt.Errorf("trading slippage and commission must not be negative")
	}
	if c.Trading.EquityEMA <= 1 {
		return fmt.Errorf("trading.equity_ema must be greater than 1")
	}
	if c.Trading.HistoryDays <= 0 {
		return fmt.Errorf("trading.history_days must be positive")
	}
	if d, err := c.Feed.ParsePollInterval(); err != nil || d <= 0 {
		return fmt.Errorf("feed.poll_interval must be a positive duration")
	}
	if _, err := c.Feed.ParseRetryDelay(); err != nil {
		return fmt.Errorf("feed.retry_delay: %w", err)
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && (c.Journal.TradesFile == "" || c.Journal.EquityFile == "") {
		return fmt.Errorf("journal trades_file and equity_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram bot_token and chat_id required when enabled")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Symbol:    "ETHUSDT",
			Timeframe: "3m",
		},
		Trading: TradingConfig{
			InitialCapital: 100,
			RiskFraction:   0.02,
			Slippage:       0.0005,
			Commission:     0.0006,
			EquityEMA:      200,
			HistoryDays:    365,
		},
		Strategy: strategy.DefaultConfig(),
		Feed: FeedConfig{
			PollInterval: "20s",
			MaxRetries:   3,
			RetryDelay:   "5s",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Dir: "./logs",
		},
	}
}
