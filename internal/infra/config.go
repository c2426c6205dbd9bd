package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"trenches/internal/domain"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// SimulationConfig controls the market loop.
type SimulationConfig struct {
	TickIntervalMS int `yaml:"tick_interval_ms"`
	InitialTokens  int `yaml:"initial_tokens"`
	InboxSize      int `yaml:"inbox_size"`
}

// TickInterval returns the tick period as a duration.
func (s SimulationConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMS) * time.Millisecond
}

// PortfolioConfig controls the simulated wallet.
type PortfolioConfig struct {
	ClaimAmount      decimal.Decimal `yaml:"claim_amount"`
	ClaimCooldownSec int             `yaml:"claim_cooldown_sec"`
	StartingBalance  decimal.Decimal `yaml:"starting_balance"`
}

// ClaimCooldown returns the cooldown as a duration.
func (p PortfolioConfig) ClaimCooldown() time.Duration {
	return time.Duration(p.ClaimCooldownSec) * time.Second
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	Redis      struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsPath string `yaml:"metrics_path"`
	PprofAddr   string `yaml:"pprof_addr"`
}

// AutopilotConfig configures the optional SMA-cross trading bot.
type AutopilotConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Fast     int             `yaml:"fast"`
	Slow     int             `yaml:"slow"`
	TradeSOL decimal.Decimal `yaml:"trade_sol"`
}

// Config holds every application setting.
// After LoadConfig parses the file, environment variables override deployment-specific values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Simulation SimulationConfig `yaml:"simulation"`
	Portfolio  PortfolioConfig  `yaml:"portfolio"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Autopilot  AutopilotConfig  `yaml:"autopilot"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with every field set.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "trenches"
	cfg.App.Version = "0.1.0"

	cfg.Simulation = SimulationConfig{TickIntervalMS: 500, InitialTokens: 35, InboxSize: 256}
	cfg.Portfolio = PortfolioConfig{
		ClaimAmount:      decimal.NewFromInt(10),
		ClaimCooldownSec: 3600,
		StartingBalance:  decimal.Zero,
	}
	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.SQLitePath = "data/trenches.db"
	cfg.Storage.Redis.Addr = "localhost:6379"
	cfg.Server = ServerConfig{ListenAddr: ":8080", MetricsPath: "/metrics"}
	cfg.Autopilot = AutopilotConfig{Fast: 5, Slow: 20, TradeSOL: decimal.NewFromFloat(0.5)}

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads a .env file next to the process (if any), then the YAML
// file at path on top of the defaults, then environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults, applies env overrides and validates.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Simulation.TickIntervalMS <= 0 {
		return &domain.ConfigError{Field: "simulation.tick_interval_ms", Err: errors.New("must be positive")}
	}
	if c.Simulation.InitialTokens < 0 {
		return &domain.ConfigError{Field: "simulation.initial_tokens", Err: errors.New("must not be negative")}
	}
	if c.Simulation.InboxSize <= 0 {
		return &domain.ConfigError{Field: "simulation.inbox_size", Err: errors.New("must be positive")}
	}

	if !c.Portfolio.ClaimAmount.IsPositive() {
		return &domain.ConfigError{Field: "portfolio.claim_amount", Err: errors.New("must be positive")}
	}
	if c.Portfolio.ClaimCooldownSec < 0 {
		return &domain.ConfigError{Field: "portfolio.claim_cooldown_sec", Err: errors.New("must not be negative")}
	}
	if c.Portfolio.StartingBalance.IsNegative() {
		return &domain.ConfigError{Field: "portfolio.starting_balance", Err: errors.New("must not be negative")}
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return &domain.ConfigError{Field: "storage.sqlite_path", Err: errors.New("required for sqlite driver")}
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return &domain.ConfigError{Field: "storage.redis.addr", Err: errors.New("required for redis driver")}
		}
	case DriverMemory:
	default:
		return &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unknown driver %q", c.Storage.Driver)}
	}

	if c.Server.MetricsPath != "" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return &domain.ConfigError{Field: "server.metrics_path", Err: errors.New("must start with /")}
	}

	if c.Autopilot.Enabled {
		if c.Autopilot.Fast <= 0 || c.Autopilot.Slow <= c.Autopilot.Fast {
			return &domain.ConfigError{Field: "autopilot", Err: errors.New("need 0 < fast < slow")}
		}
		if !c.Autopilot.TradeSOL.IsPositive() {
			return &domain.ConfigError{Field: "autopilot.trade_sol", Err: errors.New("must be positive")}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// overrideWithEnv replaces settings with environment variables when they are set.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("TRENCHES_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("TRENCHES_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("TRENCHES_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("TRENCHES_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("TRENCHES_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("TRENCHES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
