// Package config provides configuration loading and validation for the
// server and CLI. Values come from an optional YAML file with
// environment variable overrides; environment wins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration
// strings like "750ms" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the full runtime configuration. All fields are optional;
// missing values use defaults.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port,omitempty"`

	// WorkspaceRoot is the directory under which per-run workspaces are
	// created.
	WorkspaceRoot string `yaml:"workspace_root,omitempty"`

	// RegistryPath is the JSON file backing the run registry when no
	// database is configured.
	RegistryPath string `yaml:"registry_path,omitempty"`

	// DatabaseURL selects the PostgreSQL registry backend when set.
	DatabaseURL string `yaml:"database_url,omitempty"`

	// GeminiAPIKey authenticates planning calls. Unused in simulate
	// mode.
	GeminiAPIKey string `yaml:"gemini_api_key,omitempty"`

	// Simulate replaces the planner and media tools with deterministic
	// local stand-ins.
	Simulate bool `yaml:"simulate,omitempty"`

	// ReviewGate pauses runs for user review before video generation.
	ReviewGate bool `yaml:"review_gate,omitempty"`

	// PollInterval is the event watcher's checkpoint re-read interval.
	PollInterval Duration `yaml:"poll_interval,omitempty"`

	// InterruptTimeout bounds graceful interruption waits.
	InterruptTimeout Duration `yaml:"interrupt_timeout,omitempty"`

	// RetryAttempts bounds attempts per media tool call, counting the
	// first. Zero uses the executor default.
	RetryAttempts int `yaml:"retry_attempts,omitempty"`

	// Model overrides per tier; empty uses the built-in defaults.
	ModelLite     string `yaml:"model_lite,omitempty"`
	ModelStandard string `yaml:"model_standard,omitempty"`
	ModelAdvanced string `yaml:"model_advanced,omitempty"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Port:          8080,
		WorkspaceRoot: "./runs",
		ReviewGate:    true,
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("RUNS_DIR"); v != "" {
		c.WorkspaceRoot = v
	}
	if v := os.Getenv("REGISTRY_PATH"); v != "" {
		c.RegistryPath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("SIMULATE"); v != "" {
		c.Simulate = v == "1" || v == "true"
	}
	if v := os.Getenv("REVIEW_GATE"); v != "" {
		c.ReviewGate = v == "1" || v == "true"
	}
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetryAttempts = n
		}
	}
	if v := os.Getenv("MODEL_LITE"); v != "" {
		c.ModelLite = v
	}
	if v := os.Getenv("MODEL_STANDARD"); v != "" {
		c.ModelStandard = v
	}
	if v := os.Getenv("MODEL_ADVANCED"); v != "" {
		c.ModelAdvanced = v
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("config error: workspace root is empty")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("config error: poll_interval must be non-negative")
	}
	if c.InterruptTimeout < 0 {
		return fmt.Errorf("config error: interrupt_timeout must be non-negative")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("config error: retry_attempts must be non-negative")
	}
	if !c.Simulate && c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required outside simulate mode")
	}
	return nil
}

// ResolvedRegistryPath returns the registry file location, defaulting to
// a file inside the workspace root.
func (c *Config) ResolvedRegistryPath() string {
	if c.RegistryPath != "" {
		return c.RegistryPath
	}
	return filepath.Join(c.WorkspaceRoot, "runs.json")
}
