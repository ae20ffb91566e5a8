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
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Histogram HistogramConfig `yaml:"histogram" mapstructure:"histogram"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures where raw extracts come from.
type SourceConfig struct {
	Path           string  `yaml:"path" mapstructure:"path"`
	URL            string  `yaml:"url" mapstructure:"url"`
	Delimiter      string  `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet          string  `yaml:"sheet" mapstructure:"sheet"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// NormalizeConfig configures the missing infraction code repair.
type NormalizeConfig struct {
	RepairMissingCode bool   `yaml:"repair_missing_code" mapstructure:"repair_missing_code"`
	RepairCode        uint64 `yaml:"repair_code" mapstructure:"repair_code"`
}

// AggregateConfig configures summary views.
type AggregateConfig struct {
	TopN    int `yaml:"top_n" mapstructure:"top_n"`
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// HistogramConfig configures the default time-of-day histogram.
type HistogramConfig struct {
	Column  string  `yaml:"column" mapstructure:"column"`
	Min     float64 `yaml:"min" mapstructure:"min"`
	Max     float64 `yaml:"max" mapstructure:"max"`
	Buckets int     `yaml:"buckets" mapstructure:"buckets"`
}

// StoreConfig configures the summary archive backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Disabled reports whether the run archive is turned off (driver "none" or
// empty). Only runs requires an archive; serve then omits /runs.
func (s StoreConfig) Disabled() bool {
	return s.Driver == "" || s.Driver == "none"
}

// ServerConfig configures the HTTP view server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("PARKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.user_agent", "parking-cli/1.0")
	v.SetDefault("source.timeout_secs", 300)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.requests_per_sec", 2.0)
	v.SetDefault("normalize.repair_missing_code", true)
	v.SetDefault("normalize.repair_code", 0)
	v.SetDefault("aggregate.top_n", 10)
	v.SetDefault("aggregate.workers", 1)
	v.SetDefault("histogram.column", "time_of_infraction")
	v.SetDefault("histogram.min", 0)
	v.SetDefault("histogram.max", 2400)
	v.SetDefault("histogram.buckets", 24)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "parking.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command mode depends on. Modes: "summarize",
// "fetch", "serve", "runs".
func (c *Config) Validate(mode string) error {
	var problems []string

	if len([]rune(c.Source.Delimiter)) > 1 {
		problems = append(problems, fmt.Sprintf("source.delimiter must be a single character, got %q", c.Source.Delimiter))
	}
	if c.Aggregate.TopN < 0 {
		problems = append(problems, "aggregate.top_n must be >= 0")
	}
	if c.Aggregate.Workers < 1 || c.Aggregate.Workers > 64 {
		problems = append(problems, "aggregate.workers must be between 1 and 64")
	}

	switch mode {
	case "summarize":
		if c.Histogram.Buckets <= 0 || c.Histogram.Min >= c.Histogram.Max {
			problems = append(problems, "histogram needs buckets > 0 and min < max")
		}
	case "fetch":
		if c.Source.MaxRetries < 1 {
			problems = append(problems, "source.max_retries must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Source.Path == "" {
			problems = append(problems, "source.path is required")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "runs" || mode == "summarize" || mode == "serve" {
		switch {
		case c.Store.Disabled() && mode != "runs":
		case c.Store.Driver == "sqlite", c.Store.Driver == "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter, or 0 for the default.
func (s SourceConfig) DelimiterRune() rune {
	r := []rune(s.Delimiter)
	if len(r) == 0 {
		return 0
	}
	return r[0]
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
