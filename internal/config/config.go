package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Neotoma    NeotomaConfig    `yaml:"neotoma" mapstructure:"neotoma"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// NeotomaConfig configures the connection to the Neotoma database.
type NeotomaConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// StoreConfig configures the validation run history.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ValidationConfig configures validation logs and resolution.
type ValidationConfig struct {
	LogDir    string   `yaml:"log_dir" mapstructure:"log_dir"`
	Strict    bool     `yaml:"strict" mapstructure:"strict"`
	AgeFields []string `yaml:"age_fields" mapstructure:"age_fields"`
}

// BatchConfig configures multi-file processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
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
	v.SetEnvPrefix("NEOTOMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("neotoma.max_conns", 4)
	v.SetDefault("neotoma.min_conns", 1)
	v.SetDefault("neotoma.schema", "ts")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "neotoma-runs.db")
	v.SetDefault("validation.log_dir", "data")
	v.SetDefault("validation.strict", false)
	v.SetDefault("validation.age_fields", []string{"age", "ageyounger", "ageolder", "ageboundolder", "ageboundyounger"})
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
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

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "resolve", "runs":
	case "validate":
		if c.Validation.LogDir == "" {
			problems = append(problems, "validation.log_dir is required")
		}
	case "upload":
		if c.Neotoma.DatabaseURL == "" {
			problems = append(problems, "neotoma.database_url is required")
		}
		if c.Neotoma.MinConns > c.Neotoma.MaxConns {
			problems = append(problems, "neotoma.min_conns must not exceed neotoma.max_conns")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if n := c.Batch.MaxConcurrentFiles; n < 1 || n > 32 {
		problems = append(problems, fmt.Sprintf("batch.max_concurrent_files must be between 1 and 32 (got %d)", n))
	}
	if c.Store.Driver != "" && c.Store.Driver != "sqlite" {
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
