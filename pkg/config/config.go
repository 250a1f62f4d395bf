package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type LLMConfig struct {
	Provider string `json:"provider" env:"MISSIONGUIDE_LLM_PROVIDER"` // "openai" | "anthropic"
	Model    string `json:"model" env:"MISSIONGUIDE_LLM_MODEL"`
	APIKey   string `json:"api_key" env:"MISSIONGUIDE_LLM_API_KEY"`
	BaseURL  string `json:"base_url" env:"MISSIONGUIDE_LLM_BASE_URL"`
}

type VoiceConfig struct {
	Enabled bool   `json:"enabled" env:"MISSIONGUIDE_VOICE_ENABLED"`
	APIBase string `json:"api_base" env:"MISSIONGUIDE_VOICE_API_BASE"`
	Voice   string `json:"voice" env:"MISSIONGUIDE_VOICE_VOICE"`
	Player  string `json:"player" env:"MISSIONGUIDE_VOICE_PLAYER"` // override playback binary
}

type SessionConfig struct {
	HistoryWindow int    `json:"history_window" env:"MISSIONGUIDE_SESSION_HISTORY_WINDOW"`
	StartLocation string `json:"start_location" env:"MISSIONGUIDE_SESSION_START_LOCATION"`
}

type CommandsConfig struct {
	CatalogPath string `json:"catalog_path" env:"MISSIONGUIDE_COMMANDS_CATALOG_PATH"`
}

// TransitionConfig holds the phase timings of the environment transition
// state machine. All durations are milliseconds in the config file.
type TransitionConfig struct {
	FadeOutMs     int `json:"fade_out_ms" env:"MISSIONGUIDE_TRANSITION_FADE_OUT_MS"`
	FadeInMs      int `json:"fade_in_ms" env:"MISSIONGUIDE_TRANSITION_FADE_IN_MS"`
	MarkerFadeMs  int `json:"marker_fade_ms" env:"MISSIONGUIDE_TRANSITION_MARKER_FADE_MS"`
	MinDwellMs    int `json:"min_dwell_ms" env:"MISSIONGUIDE_TRANSITION_MIN_DWELL_MS"`
	LoadTimeoutMs int `json:"load_timeout_ms" env:"MISSIONGUIDE_TRANSITION_LOAD_TIMEOUT_MS"`
}

func (t TransitionConfig) FadeOut() time.Duration     { return time.Duration(t.FadeOutMs) * time.Millisecond }
func (t TransitionConfig) FadeIn() time.Duration      { return time.Duration(t.FadeInMs) * time.Millisecond }
func (t TransitionConfig) MarkerFade() time.Duration  { return time.Duration(t.MarkerFadeMs) * time.Millisecond }
func (t TransitionConfig) MinDwell() time.Duration    { return time.Duration(t.MinDwellMs) * time.Millisecond }
func (t TransitionConfig) LoadTimeout() time.Duration { return time.Duration(t.LoadTimeoutMs) * time.Millisecond }

type GatewayConfig struct {
	Host   string `json:"host" env:"MISSIONGUIDE_GATEWAY_HOST"`
	Port   int    `json:"port" env:"MISSIONGUIDE_GATEWAY_PORT"`
	Path   string `json:"path" env:"MISSIONGUIDE_GATEWAY_PATH"`
	APIKey string `json:"api_key" env:"MISSIONGUIDE_GATEWAY_API_KEY"`
}

type RateLimitsConfig struct {
	LLMRequestsPerMinute int `json:"llm_requests_per_minute" env:"MISSIONGUIDE_RATE_LIMITS_LLM_REQUESTS_PER_MINUTE"` // 0 = unlimited
}

type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Voice      VoiceConfig      `json:"voice"`
	Session    SessionConfig    `json:"session"`
	Commands   CommandsConfig   `json:"commands"`
	Transition TransitionConfig `json:"transition"`
	Gateway    GatewayConfig    `json:"gateway"`
	RateLimits RateLimitsConfig `json:"rate_limits"`
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
		},
		Voice: VoiceConfig{
			Enabled: true,
			APIBase: "http://localhost:8102",
			Voice:   "af_nova",
		},
		Session: SessionConfig{
			HistoryWindow: 12,
			StartLocation: "classroom",
		},
		Commands: CommandsConfig{
			CatalogPath: "commands.yaml",
		},
		Transition: TransitionConfig{
			FadeOutMs:     800,
			FadeInMs:      800,
			MarkerFadeMs:  400,
			MinDwellMs:    2500,
			LoadTimeoutMs: 60000,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18820,
			Path: "/ws",
		},
		RateLimits: RateLimitsConfig{
			LLMRequestsPerMinute: 30,
		},
	}
}

// LoadConfig reads the config file at path, falling back to defaults when
// the file is absent, then applies MISSIONGUIDE_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
