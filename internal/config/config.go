// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle" mapstructure:"oracle"`
	Rates    RatesConfig    `yaml:"rates" mapstructure:"rates"`
	Scenario ScenarioConfig `yaml:"scenario" mapstructure:"scenario"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OracleConfig selects and tunes the tax kernel transport.
type OracleConfig struct {
	// Mode is "kernel" (in-process) or "subprocess" (external process).
	Mode          string   `yaml:"mode" mapstructure:"mode"`
	Command       string   `yaml:"command" mapstructure:"command"`
	Args          []string `yaml:"args" mapstructure:"args"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	SpawnRate     float64  `yaml:"spawn_rate" mapstructure:"spawn_rate"`
	RetryAttempts int      `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Timeout returns the per-exchange deadline.
func (c OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RatesConfig tunes the marginal rate engine.
type RatesConfig struct {
	Probe        float64 `yaml:"probe" mapstructure:"probe"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	OASThreshold float64 `yaml:"oas_threshold" mapstructure:"oas_threshold"`
	OASCeiling   float64 `yaml:"oas_ceiling" mapstructure:"oas_ceiling"`
	OASRate      float64 `yaml:"oas_rate" mapstructure:"oas_rate"`

	// DisableOASOverlay switches the clawback overlay off; a zero oas_rate
	// alone falls back to the default.
	DisableOASOverlay bool `yaml:"disable_oas_overlay" mapstructure:"disable_oas_overlay"`
}

// ScenarioConfig tunes the optimization scenario engine.
type ScenarioConfig struct {
	ContributionRate        float64 `yaml:"contribution_rate" mapstructure:"contribution_rate"`
	AnnualContributionLimit float64 `yaml:"annual_contribution_limit" mapstructure:"annual_contribution_limit"`
	DeferralRate            float64 `yaml:"deferral_rate" mapstructure:"deferral_rate"`
	DeferralRoomCap         float64 `yaml:"deferral_room_cap" mapstructure:"deferral_room_cap"`
	Concurrency             int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the optional run store. An empty driver disables
// persistence entirely.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TAXPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("oracle.mode", "kernel")
	v.SetDefault("oracle.command", "python3")
	v.SetDefault("oracle.args", []string{"kernel/tax_kernel.py"})
	v.SetDefault("oracle.timeout_secs", 30)
	v.SetDefault("oracle.spawn_rate", 20)
	v.SetDefault("oracle.retry_attempts", 1)
	v.SetDefault("rates.probe", 1000)
	v.SetDefault("rates.concurrency", 4)
	v.SetDefault("rates.oas_threshold", 86912)
	v.SetDefault("rates.oas_ceiling", 142609)
	v.SetDefault("rates.oas_rate", 15)
	v.SetDefault("rates.disable_oas_overlay", false)
	v.SetDefault("scenario.contribution_rate", 0.18)
	v.SetDefault("scenario.annual_contribution_limit", 31560)
	v.SetDefault("scenario.deferral_rate", 0.10)
	v.SetDefault("scenario.deferral_room_cap", 10000)
	v.SetDefault("scenario.concurrency", 4)
	v.SetDefault("store.driver", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
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
