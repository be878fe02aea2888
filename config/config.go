// Package config loads CLI settings from flags, INVENTORY_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"inventory_manager/logging"
)

// EnvPrefix is prepended to every environment variable, e.g. INVENTORY_STORE_FILE.
const EnvPrefix = "INVENTORY"

// Config holds all configuration for the CLI
type Config struct {
	Store           string `mapstructure:"store"`
	StoreFile       string `mapstructure:"store-file"`
	DSN             string `mapstructure:"dsn"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`
	MinSellingPrice string `mapstructure:"min-selling-price"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store", "memory")
	v.SetDefault("store-file", "data/catalog.json")
	v.SetDefault("dsn", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("min-selling-price", "100")
}

// Load reads configuration from v. Flags must already be bound. When the
// "config" key names a file it is read before unmarshalling.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the store backend has what it needs to open and that
// the logging and pricing settings parse.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "mem":
	case "file":
		if c.StoreFile == "" {
			return errors.New("store-file is required for the file store")
		}
	case "mysql", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for the %s store", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, file, mysql or postgres)", c.Store)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format: %s", c.LogFormat)
	}

	price, err := decimal.NewFromString(c.MinSellingPrice)
	if err != nil {
		return fmt.Errorf("min-selling-price: %w", err)
	}
	if price.IsNegative() {
		return errors.New("min-selling-price must be non-negative")
	}
	return nil
}

// StoreLocation returns the file path or DSN for the configured backend.
func (c *Config) StoreLocation() string {
	switch c.Store {
	case "file":
		return c.StoreFile
	case "mysql", "postgres":
		return c.DSN
	}
	return ""
}

// MinimumSellingPrice returns the parsed minimum price for sellable units.
// Call after Validate.
func (c *Config) MinimumSellingPrice() decimal.Decimal {
	price, err := decimal.NewFromString(c.MinSellingPrice)
	if err != nil {
		return decimal.Zero
	}
	return price
}
