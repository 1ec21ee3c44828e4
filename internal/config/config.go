package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Rank       RankConfig       `yaml:"rank" mapstructure:"rank"`
	Relate     RelateConfig     `yaml:"relate" mapstructure:"relate"`
	Addressing AddressingConfig `yaml:"addressing" mapstructure:"addressing"`
	Layers     LayersConfig     `yaml:"layers" mapstructure:"layers"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// RankConfig configures rank key composition.
type RankConfig struct {
	// Scale is the line-id multiplier. It must exceed the longest sequence
	// line in the dataset's coordinate units; the pipeline rejects any
	// projected distance that reaches it.
	Scale float64 `yaml:"scale" mapstructure:"scale"`
}

// RelateConfig configures the spatial joins.
type RelateConfig struct {
	// DoorTolerance is how far, in dataset units, a door point may sit from
	// a sequence line and still associate with it.
	DoorTolerance float64 `yaml:"door_tolerance" mapstructure:"door_tolerance"`
}

// AddressingConfig configures the addressing stage.
type AddressingConfig struct {
	// Workers caps how many sub-blocks are addressed concurrently.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LayersConfig carries default attribute field names for the input layers.
type LayersConfig struct {
	CampIDField string `yaml:"camp_id_field" mapstructure:"camp_id_field"`
	LineIDField string `yaml:"line_id_field" mapstructure:"line_id_field"`
}

// StoreConfig configures the run audit store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the QA review server.
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
	v.SetEnvPrefix("CAMPADDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("rank.scale", 1_000_000)
	v.SetDefault("relate.door_tolerance", 5.0)
	v.SetDefault("addressing.workers", 4)
	v.SetDefault("layers.camp_id_field", "camp_id")
	v.SetDefault("layers.line_id_field", "line_id")
	v.SetDefault("store.path", "campaddr.db")
	v.SetDefault("server.port", 8694)
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

// Validate checks the configuration for the given run mode. All modes share
// the pipeline bounds; serve additionally needs a usable listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "address", "validate", "runs":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Rank.Scale <= 0 {
		problems = append(problems, "rank.scale must be > 0")
	}
	if c.Relate.DoorTolerance < 0 {
		problems = append(problems, "relate.door_tolerance must be >= 0")
	}
	if c.Addressing.Workers < 1 || c.Addressing.Workers > 64 {
		problems = append(problems, "addressing.workers must be between 1 and 64")
	}
	if c.Store.Path == "" {
		problems = append(problems, "store.path is required")
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
