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
	Sources []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Match   MatchConfig    `yaml:"match" mapstructure:"match"`
	Geocode GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Batch   BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Output  OutputConfig   `yaml:"output" mapstructure:"output"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig names one directory and the bundle file holding its export.
type SourceConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Path string `yaml:"path" mapstructure:"path"`
}

// MatchConfig tunes grouping.
type MatchConfig struct {
	MaxDistanceKM float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
}

// GeocodeConfig configures coordinate backfill through the Census API.
type GeocodeConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// BatchConfig bounds parallel reconciliation runs.
type BatchConfig struct {
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
}

// OutputConfig selects the result encoding.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROVDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("match.max_distance_km", 10.0)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.cache_ttl_hours", 24)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("batch.max_concurrent_runs", 4)
	v.SetDefault("output.format", FormatJSON)

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

// Validate reports every problem at once. Sources are only required when
// requireSources is set, since flags may supply them later.
func (c *Config) Validate(requireSources bool) error {
	var problems []string

	if requireSources && len(c.Sources) == 0 {
		problems = append(problems, "at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("sources[%d].name is required", i))
		}
		if s.Path == "" {
			problems = append(problems, fmt.Sprintf("sources[%d].path is required", i))
		}
		if s.Name != "" && seen[s.Name] {
			problems = append(problems, fmt.Sprintf("duplicate source %q", s.Name))
		}
		seen[s.Name] = true
	}

	if c.Match.MaxDistanceKM <= 0 {
		problems = append(problems, "match.max_distance_km must be > 0")
	}
	if c.Batch.MaxConcurrentRuns < 1 || c.Batch.MaxConcurrentRuns > 64 {
		problems = append(problems, "batch.max_concurrent_runs must be between 1 and 64")
	}
	if c.Geocode.Enabled && c.Geocode.RateLimit <= 0 {
		problems = append(problems, "geocode.rate_limit must be > 0")
	}
	switch c.Output.Format {
	case FormatJSON, FormatYAML:
	default:
		problems = append(problems, fmt.Sprintf("output.format %q must be json or yaml", c.Output.Format))
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
