// Package config loads service configuration and builds the global logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. FLEETBILL_SERVER_PORT.
const EnvPrefix = "FLEETBILL"

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Billing BillingConfig `yaml:"billing" mapstructure:"billing"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// BillingConfig holds service-level billing defaults. The per-tenant
// day type rules live in the store, not here.
type BillingConfig struct {
	TenantID string  `yaml:"tenant_id" mapstructure:"tenant_id"`
	Rate     float64 `yaml:"rate" mapstructure:"rate"` // 0 means no cost figures
	Preset   string  `yaml:"preset" mapstructure:"preset"`
}

// ReportConfig tunes fleet report building.
type ReportConfig struct {
	MaxConcurrentAssets int `yaml:"max_concurrent_assets" mapstructure:"max_concurrent_assets"`
}

// Load reads .env (if present), config.yaml (if present) and FLEETBILL_*
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/fleet-billing.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("billing.tenant_id", "default")
	v.SetDefault("billing.rate", 0)
	v.SetDefault("billing.preset", "plant_hire")
	v.SetDefault("report.max_concurrent_assets", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Billing.Rate < 0 {
		return eris.New("config: billing.rate must not be negative")
	}
	if c.Report.MaxConcurrentAssets < 1 {
		return eris.New("config: report.max_concurrent_assets must be at least 1")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
