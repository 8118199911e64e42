package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultPersonaName = "Leila"
	DefaultLocation    = "Moscow"
	DefaultTimezone    = "Europe/Moscow"

	DefaultMaxTurns         = 40
	DefaultEvictBlock       = 20
	DefaultMaxSummaries     = 5
	DefaultMaxPoints        = 10
	DefaultMaxConversations = 512
	DefaultMaxUsers         = 512

	DefaultSkipProbability = 0.2
	DefaultBufSize         = 100
	DefaultRequestTimeout  = 60

	DefaultDailyGreetingSpec = "0 0 9 * * *"
)

type Config struct {
	Persona  PersonaConfig  `json:"persona"`
	Provider ProviderConfig `json:"provider"`
	Channels ChannelsConfig `json:"channels"`
	Memory   MemoryConfig   `json:"memory"`
	Gate     GateConfig     `json:"gate"`
	Weather  WeatherConfig  `json:"weather"`
	Cron     CronConfig     `json:"cron"`
}

type PersonaConfig struct {
	Name     string   `json:"name" env:"LEILA_PERSONA_NAME"`
	Aliases  []string `json:"aliases,omitempty" env:"LEILA_PERSONA_ALIASES"`
	Location string   `json:"location" env:"LEILA_LOCATION"`
	Timezone string   `json:"timezone" env:"LEILA_TIMEZONE"`
}

type ProviderConfig struct {
	APIKey         string `json:"apiKey" env:"OPENAI_API_KEY"`
	BaseURL        string `json:"baseUrl,omitempty" env:"LEILA_BASE_URL"`
	RequestTimeout int    `json:"requestTimeout,omitempty" env:"LEILA_REQUEST_TIMEOUT"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled     bool     `json:"enabled" env:"LEILA_TELEGRAM_ENABLED"`
	Token       string   `json:"token" env:"BOT_TOKEN"`
	GroupChatID string   `json:"groupChatId,omitempty" env:"GROUP_CHAT_ID"`
	OwnerID     string   `json:"ownerId,omitempty" env:"OWNER_CHAT_ID"`
	SpecialUser string   `json:"specialUser,omitempty" env:"TARGET_USER_ID"`
	AllowFrom   []string `json:"allowFrom,omitempty"`
	Proxy       string   `json:"proxy,omitempty" env:"LEILA_TELEGRAM_PROXY"`
}

type MemoryConfig struct {
	MaxTurns         int `json:"maxTurns,omitempty" env:"LEILA_MEMORY_MAX_TURNS"`
	EvictBlock       int `json:"evictBlock,omitempty" env:"LEILA_MEMORY_EVICT_BLOCK"`
	MaxSummaries     int `json:"maxSummaries,omitempty"`
	MaxPoints        int `json:"maxPoints,omitempty"`
	MaxConversations int `json:"maxConversations,omitempty"`
}

type GateConfig struct {
	SkipProbability float64 `json:"skipProbability" env:"LEILA_GATE_SKIP_PROBABILITY"`
}

type WeatherConfig struct {
	APIKey      string `json:"apiKey,omitempty" env:"OPENWEATHER_API_KEY"`
	DefaultCity string `json:"defaultCity,omitempty" env:"LEILA_WEATHER_CITY"`
}

type CronConfig struct {
	Enabled       bool   `json:"enabled" env:"LEILA_CRON_ENABLED"`
	DailyGreeting string `json:"dailyGreeting,omitempty" env:"LEILA_CRON_DAILY_GREETING"`
}

func DefaultConfig() *Config {
	return &Config{
		Persona: PersonaConfig{
			Name:     DefaultPersonaName,
			Location: DefaultLocation,
			Timezone: DefaultTimezone,
		},
		Provider: ProviderConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Channels: ChannelsConfig{},
		Memory: MemoryConfig{
			MaxTurns:         DefaultMaxTurns,
			EvictBlock:       DefaultEvictBlock,
			MaxSummaries:     DefaultMaxSummaries,
			MaxPoints:        DefaultMaxPoints,
			MaxConversations: DefaultMaxConversations,
		},
		Gate: GateConfig{
			SkipProbability: DefaultSkipProbability,
		},
		Weather: WeatherConfig{
			DefaultCity: DefaultLocation,
		},
		Cron: CronConfig{
			DailyGreeting: DefaultDailyGreetingSpec,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".leila")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig reads the JSON config file (if present), then applies the
// environment variable overrides declared in the struct tags.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Persona.Name == "" {
		c.Persona.Name = DefaultPersonaName
	}
	if c.Persona.Location == "" {
		c.Persona.Location = DefaultLocation
	}
	if c.Persona.Timezone == "" {
		c.Persona.Timezone = DefaultTimezone
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = DefaultRequestTimeout
	}
	if c.Memory.MaxTurns <= 0 {
		c.Memory.MaxTurns = DefaultMaxTurns
	}
	if c.Memory.EvictBlock <= 0 || c.Memory.EvictBlock > c.Memory.MaxTurns {
		c.Memory.EvictBlock = c.Memory.MaxTurns / 2
	}
	if c.Memory.EvictBlock < 1 {
		c.Memory.EvictBlock = 1
	}
	if c.Memory.MaxSummaries <= 0 {
		c.Memory.MaxSummaries = DefaultMaxSummaries
	}
	if c.Memory.MaxPoints <= 0 {
		c.Memory.MaxPoints = DefaultMaxPoints
	}
	if c.Memory.MaxConversations <= 0 {
		c.Memory.MaxConversations = DefaultMaxConversations
	}
	if c.Gate.SkipProbability < 0 || c.Gate.SkipProbability >= 1 {
		c.Gate.SkipProbability = DefaultSkipProbability
	}
	if c.Weather.DefaultCity == "" {
		c.Weather.DefaultCity = c.Persona.Location
	}
	if c.Cron.DailyGreeting == "" {
		c.Cron.DailyGreeting = DefaultDailyGreetingSpec
	}
	if c.Channels.Telegram.Token == "" {
		c.Channels.Telegram.Enabled = false
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
