package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Predict struct {
		DefaultLimit int           `yaml:"default_limit"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		ModelPath    string        `yaml:"model_path"`
		MetaPath     string        `yaml:"meta_path"`
		DataDir      string        `yaml:"data_dir"`
	} `yaml:"predict"`
	Oanda struct {
		Token string `yaml:"token"`
		Env   string `yaml:"env"` // "practice" or "live"
	} `yaml:"oanda"`
	AlphaVantage struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"alphavantage"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	History struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Table    string `yaml:"table"`
	} `yaml:"history"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		Depth          int           `yaml:"depth"`
	} `yaml:"stream"`
	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Missing provider credentials are not errors; they disable the adapter.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("OANDA_TOKEN"); v != "" {
		c.Oanda.Token = v
	}
	if v := os.Getenv("OANDA_ENV"); v != "" {
		c.Oanda.Env = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_KEY"); v != "" {
		c.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.Server.Port)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Predict.DefaultLimit == 0 {
		c.Predict.DefaultLimit = 300
	}
	if c.Predict.CacheTTL == 0 {
		c.Predict.CacheTTL = 15 * time.Second
	}
	if c.Oanda.Env == "" {
		c.Oanda.Env = "practice"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Stream.URL == "" {
		c.Stream.URL = "wss://stream.binance.com:9443/ws"
	}
	if c.Stream.Depth == 0 {
		c.Stream.Depth = 1000
	}
	if c.History.Table == "" {
		c.History.Table = "candles_1m"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Oanda.Env != "practice" && c.Oanda.Env != "live" {
		return fmt.Errorf("oanda.env must be 'practice' or 'live', got '%s'", c.Oanda.Env)
	}
	if c.Predict.DefaultLimit < 0 {
		return fmt.Errorf("predict.default_limit must be positive")
	}
	if c.History.Enabled && c.History.Host == "" {
		return fmt.Errorf("history.host is required when history is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// OandaAPIBase returns the REST base URL for the configured environment.
func (c *Config) OandaAPIBase() string {
	if c.Oanda.Env == "live" {
		return "https://api-fxtrade.oanda.com"
	}
	return "https://api-fxpractice.oanda.com"
}
