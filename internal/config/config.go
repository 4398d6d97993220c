package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Futures struct {
		Symbol     string `yaml:"symbol"`
		GatewayURL string `yaml:"gateway_url"` // http(s) base of the futures gateway
		StreamURL  string `yaml:"stream_url"`  // ws(s) endpoint for live bars/ticks
	} `yaml:"futures"`
	Crypto struct {
		Symbol   string `yaml:"symbol"`
		Pair     string `yaml:"pair"` // exchange pair, e.g. BTCUSDT
		WSBase   string `yaml:"ws_base"`
		RESTBase string `yaml:"rest_base"`
	} `yaml:"crypto"`
	Buffer struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"buffer"`
	Analysis struct {
		MinLagCorr    float64 `yaml:"min_lag_corr"` // lead/lag gate: minimum |corr| at best lag
		MinLagGain    float64 `yaml:"min_lag_gain"` // lead/lag gate: minimum gain over sync corr
		MaxLag        int     `yaml:"max_lag"`      // 0 = dynamic window
		RecomputeCron string  `yaml:"recompute_cron"`
	} `yaml:"analysis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
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
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("FUTURES_GATEWAY_URL"); v != "" {
		cfg.Futures.GatewayURL = v
	}
	if v := os.Getenv("FUTURES_STREAM_URL"); v != "" {
		cfg.Futures.StreamURL = v
	}
	if v := os.Getenv("CRYPTO_PAIR"); v != "" {
		cfg.Crypto.Pair = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("BUFFER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Buffer.Capacity = n
		}
	}

	// Defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8765"
	}
	if cfg.Futures.Symbol == "" {
		cfg.Futures.Symbol = "ES"
	}
	if cfg.Crypto.Symbol == "" {
		cfg.Crypto.Symbol = "BTC"
	}
	if cfg.Crypto.Pair == "" {
		cfg.Crypto.Pair = "BTCUSDT"
	}
	if cfg.Crypto.WSBase == "" {
		cfg.Crypto.WSBase = "wss://stream.binance.com:9443"
	}
	if cfg.Crypto.RESTBase == "" {
		cfg.Crypto.RESTBase = "https://api.binance.com"
	}
	if cfg.Buffer.Capacity == 0 {
		cfg.Buffer.Capacity = 1500
	}
	if cfg.Analysis.MinLagCorr == 0 {
		cfg.Analysis.MinLagCorr = 0.2
	}
	if cfg.Analysis.MinLagGain == 0 {
		cfg.Analysis.MinLagGain = 0.05
	}
	if cfg.Analysis.RecomputeCron == "" {
		cfg.Analysis.RecomputeCron = "*/30 * * * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Futures.GatewayURL == "" {
		return fmt.Errorf("futures.gateway_url is required")
	}
	if c.Futures.StreamURL == "" {
		return fmt.Errorf("futures.stream_url is required")
	}
	if c.Buffer.Capacity < 0 {
		return fmt.Errorf("buffer.capacity must not be negative")
	}
	if c.Analysis.MinLagCorr < 0 || c.Analysis.MinLagCorr > 1 {
		return fmt.Errorf("analysis.min_lag_corr must be in [0,1]")
	}
	return nil
}
