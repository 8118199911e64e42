package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Persona.Name != DefaultPersonaName {
		t.Errorf("Persona.Name = %q", cfg.Persona.Name)
	}
	if cfg.Memory.MaxTurns != DefaultMaxTurns || cfg.Memory.EvictBlock != DefaultEvictBlock {
		t.Errorf("memory defaults wrong: %+v", cfg.Memory)
	}
	if cfg.Gate.SkipProbability != DefaultSkipProbability {
		t.Errorf("Gate.SkipProbability = %v", cfg.Gate.SkipProbability)
	}
	if cfg.Channels.Telegram.Enabled {
		t.Error("telegram should be disabled until a token is set")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Persona.Name != DefaultPersonaName {
		t.Errorf("Persona.Name = %q, want defaults on missing file", cfg.Persona.Name)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".leila")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	raw := `{
		"persona": {"name": "Nika", "location": "Berlin"},
		"memory": {"maxTurns": 20, "evictBlock": 8},
		"channels": {"telegram": {"enabled": true, "token": "tok123"}}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Persona.Name != "Nika" || cfg.Persona.Location != "Berlin" {
		t.Errorf("persona not loaded: %+v", cfg.Persona)
	}
	if cfg.Memory.MaxTurns != 20 || cfg.Memory.EvictBlock != 8 {
		t.Errorf("memory not loaded: %+v", cfg.Memory)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "tok123" {
		t.Errorf("telegram not loaded: %+v", cfg.Channels.Telegram)
	}
	// Unset fields keep their defaults.
	if cfg.Persona.Timezone != DefaultTimezone {
		t.Errorf("Timezone = %q, want default", cfg.Persona.Timezone)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BOT_TOKEN", "tele-tok")
	t.Setenv("TARGET_USER_ID", "7")
	t.Setenv("LEILA_GATE_SKIP_PROBABILITY", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Provider.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Provider.APIKey)
	}
	if cfg.Channels.Telegram.Token != "tele-tok" || cfg.Channels.Telegram.SpecialUser != "7" {
		t.Errorf("telegram env overrides missing: %+v", cfg.Channels.Telegram)
	}
	if cfg.Gate.SkipProbability != 0.5 {
		t.Errorf("SkipProbability = %v, want 0.5", cfg.Gate.SkipProbability)
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := &Config{
		Memory: MemoryConfig{MaxTurns: 10, EvictBlock: 99},
		Gate:   GateConfig{SkipProbability: 1.5},
	}
	cfg.normalize()

	if cfg.Memory.EvictBlock != 5 {
		t.Errorf("EvictBlock = %d, want clamped to half of MaxTurns", cfg.Memory.EvictBlock)
	}

	tiny := &Config{Memory: MemoryConfig{MaxTurns: 1, EvictBlock: 99}}
	tiny.normalize()
	if tiny.Memory.EvictBlock != 1 {
		t.Errorf("EvictBlock = %d, want 1 when MaxTurns is 1", tiny.Memory.EvictBlock)
	}
	if cfg.Gate.SkipProbability != DefaultSkipProbability {
		t.Errorf("SkipProbability = %v, want reset", cfg.Gate.SkipProbability)
	}
	if cfg.Weather.DefaultCity != cfg.Persona.Location {
		t.Errorf("DefaultCity = %q, want persona location", cfg.Weather.DefaultCity)
	}
	if cfg.Channels.Telegram.Enabled {
		t.Error("telegram must stay disabled without a token")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Persona.Name = "Nika"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse saved config: %v", err)
	}
	if got.Persona.Name != "Nika" {
		t.Errorf("Persona.Name = %q after round trip", got.Persona.Name)
	}
}
