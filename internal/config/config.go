package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "60s", "2s"
// or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Groq struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"groq"`
	Exchange struct {
		BaseURL     string   `yaml:"base_url"`
		Symbols     []string `yaml:"symbols"`
		Timeframe   string   `yaml:"timeframe"`
		CandleLimit int      `yaml:"candle_limit"`
	} `yaml:"exchange"`
	Signal struct {
		MaxRetries          int      `yaml:"max_retries"`
		TransportBackoff    Duration `yaml:"transport_backoff"`
		SemanticBackoff     Duration `yaml:"semantic_backoff"`
		PendingThreshold    float64  `yaml:"pending_threshold"`
		ConfidenceNoteBelow float64  `yaml:"confidence_note_below"`
		HistorySize         int      `yaml:"history_size"`
	} `yaml:"signal"`
	Monitor struct {
		TickInterval    Duration `yaml:"tick_interval"`
		ScanInterval    Duration `yaml:"scan_interval"`
		AlertConfidence float64  `yaml:"alert_confidence"`
	} `yaml:"monitor"`
	Log struct {
		Level      string `yaml:"level"`
		FilePath   string `yaml:"file_path"`
		MaxSize    int    `yaml:"max_size"`
		MaxAge     int    `yaml:"max_age"`
		MaxBackups int    `yaml:"max_backups"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Groq.APIKey = v
	}
	if v := os.Getenv("GROQ_MODEL"); v != "" {
		cfg.Groq.Model = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SIGNAL_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Signal.MaxRetries = n
		}
	}

	// Defaults
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = "deepseek-r1-distill-llama-70b"
	}
	if cfg.Groq.BaseURL == "" {
		cfg.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = "https://api.binance.com"
	}
	if len(cfg.Exchange.Symbols) == 0 {
		cfg.Exchange.Symbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
	}
	if cfg.Exchange.Timeframe == "" {
		cfg.Exchange.Timeframe = "1h"
	}
	if cfg.Exchange.CandleLimit == 0 {
		cfg.Exchange.CandleLimit = 50
	}
	if cfg.Signal.MaxRetries == 0 {
		cfg.Signal.MaxRetries = 3
	}
	if cfg.Signal.TransportBackoff == 0 {
		cfg.Signal.TransportBackoff = Duration(2 * time.Second)
	}
	if cfg.Signal.SemanticBackoff == 0 {
		cfg.Signal.SemanticBackoff = Duration(2 * time.Second)
	}
	if cfg.Signal.PendingThreshold == 0 {
		cfg.Signal.PendingThreshold = 0.005
	}
	if cfg.Signal.ConfidenceNoteBelow == 0 {
		cfg.Signal.ConfidenceNoteBelow = 0.70
	}
	if cfg.Signal.HistorySize == 0 {
		cfg.Signal.HistorySize = 50
	}
	if cfg.Monitor.TickInterval == 0 {
		cfg.Monitor.TickInterval = Duration(60 * time.Second)
	}
	if cfg.Monitor.ScanInterval == 0 {
		cfg.Monitor.ScanInterval = Duration(15 * time.Minute)
	}
	if cfg.Monitor.AlertConfidence == 0 {
		cfg.Monitor.AlertConfidence = 0.85
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSize == 0 {
		cfg.Log.MaxSize = 100
	}
	if cfg.Log.MaxAge == 0 {
		cfg.Log.MaxAge = 30
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 7
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Groq.APIKey == "" {
		return fmt.Errorf("groq.api_key is required")
	}
	if c.Signal.MaxRetries < 1 {
		return fmt.Errorf("signal.max_retries must be at least 1")
	}
	if c.Signal.PendingThreshold <= 0 {
		return fmt.Errorf("signal.pending_threshold must be positive")
	}
	return nil
}
