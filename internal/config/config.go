// Package config holds the typeahead configuration: a YAML file for the
// app itself and the JSON target list produced by the capture tool. Both
// are loaded at startup; the target list may additionally be hot-reloaded
// while running.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all typeahead configuration.
type Config struct {
	// LLM backend settings
	LLM LLMConfig `yaml:"llm"`

	// Trigger key that accepts the current suggestion
	Trigger TriggerConfig `yaml:"trigger"`

	// Prediction timing
	Predict PredictConfig `yaml:"predict"`

	// Bridge socket and overlay pump
	Loop LoopConfig `yaml:"loop"`

	// Prediction history store
	History HistoryConfig `yaml:"history"`

	// Debug logging
	Logging LoggingConfig `yaml:"logging"`

	// TargetsPath points at the captured target list (JSON)
	TargetsPath string `yaml:"targets_path"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
	TopK        int     `yaml:"top_k"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// TriggerConfig identifies the acceptance key. A key event matches when
// either the symbolic name or the numeric code agrees.
type TriggerConfig struct {
	EventString string `yaml:"event_string"`
	KeyCode     int    `yaml:"key_code"`
}

// PredictConfig tunes when predictions fire.
type PredictConfig struct {
	MinChars      int    `yaml:"min_chars"`
	IdleDelay     string `yaml:"idle_delay"`
	DebounceDelay string `yaml:"debounce_delay"`
	Delimiter     string `yaml:"delimiter"`
}

// LoopConfig configures the host loop integration.
type LoopConfig struct {
	SocketPath string `yaml:"socket_path"`
	PumpEvery  string `yaml:"pump_every"`
}

// HistoryConfig configures the prediction log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		LLM: LLMConfig{
			Model:       "mistral",
			BaseURL:     "http://localhost:11434",
			Timeout:     "30s",
			Temperature: 0.7,
			TopK:        50,
			TopP:        0.9,
			MaxTokens:   20,
		},
		Trigger: TriggerConfig{
			EventString: "Tab",
			KeyCode:     65289,
		},
		Predict: PredictConfig{
			MinChars:      3,
			IdleDelay:     "1s",
			DebounceDelay: "300ms",
			Delimiter:     " ",
		},
		Loop: LoopConfig{
			SocketPath: filepath.Join(defaultRuntimeDir(), "typeahead.sock"),
			PumpEvery:  "50ms",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "history.db"),
		},
		Logging: LoggingConfig{
			Debug: false,
			Dir:   filepath.Join(dataDir, "logs"),
			Level: "info",
		},
		TargetsPath: filepath.Join(defaultConfigDir(), "targets.json"),
	}
}

// DefaultPath returns the stock config file location.
func DefaultPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// Load reads the config file, applying defaults for absent fields and
// environment overrides on top. A missing file yields the defaults, so a
// first run works without any setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config file, creating its directory as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets the environment win over the file, which keeps
// per-machine backend settings out of a shared config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TYPEAHEAD_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("TYPEAHEAD_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("TYPEAHEAD_TARGETS"); v != "" {
		c.TargetsPath = v
	}
}

// Validate checks the durations and required fields.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"llm.timeout":            c.LLM.Timeout,
		"predict.idle_delay":     c.Predict.IdleDelay,
		"predict.debounce_delay": c.Predict.DebounceDelay,
		"loop.pump_every":        c.Loop.PumpEvery,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("config: invalid duration for %s: %q", name, value)
		}
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm.model required")
	}
	if c.Predict.Delimiter == "" {
		return fmt.Errorf("config: predict.delimiter required")
	}
	return nil
}

// Duration accessors parse the string fields, falling back to the default
// when unset. Validate catches genuinely malformed values at load time.

func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 30*time.Second)
}

func (c *Config) IdleDelay() time.Duration {
	return parseDuration(c.Predict.IdleDelay, time.Second)
}

func (c *Config) DebounceDelay() time.Duration {
	return parseDuration(c.Predict.DebounceDelay, 300*time.Millisecond)
}

func (c *Config) PumpEvery() time.Duration {
	return parseDuration(c.Loop.PumpEvery, 50*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "typeahead")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "typeahead")
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "typeahead")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "typeahead")
}

func defaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
