package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Model != "mistral" {
		t.Errorf("expected model=mistral, got %s", cfg.LLM.Model)
	}
	if cfg.Trigger.EventString != "Tab" || cfg.Trigger.KeyCode != 65289 {
		t.Errorf("unexpected trigger default: %+v", cfg.Trigger)
	}
	if cfg.Predict.MinChars != 3 {
		t.Errorf("expected min_chars=3, got %d", cfg.Predict.MinChars)
	}
	if cfg.IdleDelay() != time.Second {
		t.Errorf("expected idle delay 1s, got %s", cfg.IdleDelay())
	}
	if cfg.DebounceDelay() != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %s", cfg.DebounceDelay())
	}
	if cfg.PumpEvery() != 50*time.Millisecond {
		t.Errorf("expected pump period 50ms, got %s", cfg.PumpEvery())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("TYPEAHEAD_BASE_URL", "")
	t.Setenv("TYPEAHEAD_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "llama3"
	cfg.Predict.IdleDelay = "2s"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Model != "llama3" {
		t.Errorf("expected model=llama3, got %s", loaded.LLM.Model)
	}
	if loaded.IdleDelay() != 2*time.Second {
		t.Errorf("expected idle delay 2s, got %s", loaded.IdleDelay())
	}
}

func TestConfig_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("TYPEAHEAD_BASE_URL", "")
	t.Setenv("TYPEAHEAD_MODEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "mistral" {
		t.Errorf("expected defaults, got model=%s", cfg.LLM.Model)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TYPEAHEAD_BASE_URL", "http://gpu-box:11434")
	t.Setenv("TYPEAHEAD_MODEL", "qwen")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("expected env base url, got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "qwen" {
		t.Errorf("expected env model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_InvalidDurationRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Predict.IdleDelay = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for malformed duration")
	}
}
