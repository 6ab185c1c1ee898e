package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "cypherc"
	// EnvPrefix prefixes environment overrides, e.g. CYPHERC_NEO4J_URI.
	EnvPrefix = "CYPHERC"
)

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"model":       "model.dir",
	"claims":      "compile.claims_file",
	"parallelism": "compile.parallelism",
	"journal":     "journal.path",
	"neo4j-uri":   "neo4j.uri",
	"neo4j-user":  "neo4j.username",
	"database":    "neo4j.database",
	"format":      "format",
}

// Loader loads configuration with layered precedence:
// 1. Defaults
// 2. Config file (explicit path, or cypherc.yaml in the working directory)
// 3. CYPHERC_* environment variables
// 4. Flags the user set explicitly
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the configuration. path may be empty; a missing default file
// is not an error, a missing explicit file is. flags may be nil.
func (l *Loader) Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		l.logger.Debug("no config file found, using defaults and env")
	} else {
		l.logger.Debug("loaded config", slog.String("path", v.ConfigFileUsed()))
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// no config file mentions.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("model.dir", d.Model.Dir)
	v.SetDefault("compile.claims_file", d.Compile.ClaimsFile)
	v.SetDefault("compile.parallelism", d.Compile.Parallelism)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("neo4j.uri", d.Neo4j.URI)
	v.SetDefault("neo4j.username", d.Neo4j.Username)
	v.SetDefault("neo4j.password", d.Neo4j.Password)
	v.SetDefault("neo4j.database", d.Neo4j.Database)
	v.SetDefault("neo4j.timeout", d.Neo4j.Timeout)
	v.SetDefault("format", d.Format)
}
