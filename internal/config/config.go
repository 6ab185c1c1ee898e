// Package config loads cypherc settings from cypherc.yaml, CYPHERC_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"time"
)

// Config is the complete cypherc configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Compile CompileConfig `mapstructure:"compile"`
	Journal JournalConfig `mapstructure:"journal"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	// Format is the CLI output format: text or json.
	Format string `mapstructure:"format"`
}

// ModelConfig locates the data model description.
type ModelConfig struct {
	// Dir is the directory holding the model's .cue files.
	Dir string `mapstructure:"dir"`
}

// CompileConfig configures request compilation.
type CompileConfig struct {
	// ClaimsFile is a YAML or JSON file holding the request claims. Empty
	// compiles unauthenticated requests.
	ClaimsFile string `mapstructure:"claims_file"`
	// Parallelism bounds concurrent compilations in batch mode.
	Parallelism int `mapstructure:"parallelism"`
}

// JournalConfig configures the compile journal.
type JournalConfig struct {
	// Path is the SQLite journal file. Empty disables journaling.
	Path string `mapstructure:"path"`
}

// Neo4jConfig configures statement execution.
type Neo4jConfig struct {
	URI      string        `mapstructure:"uri"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Dir: "model",
		},
		Compile: CompileConfig{
			Parallelism: 4,
		},
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
			Timeout:  30 * time.Second,
		},
		Format: "text",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir is required")
	}
	if c.Compile.Parallelism < 1 {
		return fmt.Errorf("compile.parallelism must be at least 1, got %d", c.Compile.Parallelism)
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	if c.Neo4j.Timeout < 0 {
		return fmt.Errorf("neo4j.timeout must not be negative")
	}
	return nil
}

// ValidateNeo4j checks the settings needed to execute statements.
func (c *Config) ValidateNeo4j() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Neo4j.Username == "" {
		return fmt.Errorf("neo4j.username is required")
	}
	return nil
}
