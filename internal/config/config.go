// Package config defines all configuration for the executor. Config is
// loaded from a TOML file (default: ./coex.toml) with the private key
// overridable via a COEX_PRIVATE_KEY env var, the way the teacher's config
// package overrides wallet secrets via POLY_*.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, matching SPEC_FULL.md §6's option
// list plus the ambient sections (logging, simulator, txmanager, checkin).
type Config struct {
	ChainName         string `mapstructure:"chain_name"`
	HTTPEndpoint      string `mapstructure:"http_endpoint"`
	WSEndpoint        string `mapstructure:"ws_endpoint"`
	WalletAddress     string `mapstructure:"wallet_address"`
	PrivateKey        string `mapstructure:"private_key"`
	TaxedTokens       bool   `mapstructure:"taxed_tokens"`
	OrderCancellation bool   `mapstructure:"order_cancellation"`
	OrderRefresh      bool   `mapstructure:"order_refresh"`

	Logging   LoggingConfig   `mapstructure:"logging"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	TxManager TxManagerConfig `mapstructure:"txmanager"`
	CheckIn   CheckInConfig   `mapstructure:"checkin"`
}

// LoggingConfig selects the slog handler and minimum level.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SimulatorConfig bounds the concurrency of the balance-check fan-out.
type SimulatorConfig struct {
	MaxConcurrentBalanceChecks int `mapstructure:"max_concurrent_balance_checks"`
}

// TxManagerConfig tunes the pending-tx reaper and submit retry cadence.
type TxManagerConfig struct {
	PendingReapInterval time.Duration `mapstructure:"pending_reap_interval"`
	SubmitRetryBackoff  time.Duration `mapstructure:"submit_retry_backoff"`
}

// CheckInConfig sets the period of the low-frequency liveness check-in daemon.
type CheckInConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config from a TOML file with an env var override for the
// private key, so operators can keep it out of the file on disk.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("COEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("COEX_PRIVATE_KEY"); key != "" {
		cfg.PrivateKey = key
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("simulator.max_concurrent_balance_checks", 16)
	v.SetDefault("txmanager.pending_reap_interval", 5*time.Second)
	v.SetDefault("txmanager.submit_retry_backoff", 500*time.Millisecond)
	v.SetDefault("checkin.interval", 12*time.Hour)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if _, ok := Profiles[c.ChainName]; !ok {
		return fmt.Errorf("chain_name %q has no compiled-in profile", c.ChainName)
	}
	if c.HTTPEndpoint == "" {
		return fmt.Errorf("http_endpoint is required")
	}
	if c.WSEndpoint == "" {
		return fmt.Errorf("ws_endpoint is required")
	}
	if c.WalletAddress == "" {
		return fmt.Errorf("wallet_address is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private_key is required (set COEX_PRIVATE_KEY)")
	}
	if c.Simulator.MaxConcurrentBalanceChecks <= 0 {
		return fmt.Errorf("simulator.max_concurrent_balance_checks must be > 0")
	}
	return nil
}
