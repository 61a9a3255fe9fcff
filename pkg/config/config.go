package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// ErrMissingToken is returned when no Discord token is configured.
var ErrMissingToken = errors.New("discord token not configured")

// ErrMissingAPIKey is returned when no translator API key is configured.
var ErrMissingAPIKey = errors.New("translator API key not configured")

type Config struct {
	Discord    DiscordConfig    `json:"discord"`
	Translator TranslatorConfig `json:"translator"`
	Relay      RelayConfig      `json:"relay"`
	Suggest    SuggestConfig    `json:"suggest"`
	Comparison ComparisonConfig `json:"comparison"`
}

type DiscordConfig struct {
	Token string `env:"KAKEHASHI_DISCORD_TOKEN" json:"token"`
}

type TranslatorConfig struct {
	Provider       string `env:"KAKEHASHI_TRANSLATOR_PROVIDER"        json:"provider"` // "gemini" | "anthropic"
	APIKey         string `env:"KAKEHASHI_TRANSLATOR_API_KEY"         json:"api_key"`
	Model          string `env:"KAKEHASHI_TRANSLATOR_MODEL"           json:"model"`
	TimeoutSeconds int    `env:"KAKEHASHI_TRANSLATOR_TIMEOUT_SECONDS" json:"timeout_seconds"`
	MaxRetries     int    `env:"KAKEHASHI_TRANSLATOR_MAX_RETRIES"     json:"max_retries"`
}

// Pairing links a source channel to its mirror target. A pairing whose
// target equals its source means "translate in place" within one channel.
type Pairing struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type RelayConfig struct {
	Pairings      []Pairing `json:"pairings"`
	ContextWindow int       `env:"KAKEHASHI_RELAY_CONTEXT_WINDOW" json:"context_window"`
}

type SuggestConfig struct {
	Enabled       bool `env:"KAKEHASHI_SUGGEST_ENABLED"        json:"enabled"`
	ExpirySeconds int  `env:"KAKEHASHI_SUGGEST_EXPIRY_SECONDS" json:"expiry_seconds"`
}

// ModelParams holds per-model generation parameters for the comparison
// harness. Recommended values differ per local model family.
type ModelParams struct {
	ID          string  `json:"id"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type ComparisonConfig struct {
	Enabled bool          `env:"KAKEHASHI_COMPARISON_ENABLED"  json:"enabled"`
	BaseURL string        `env:"KAKEHASHI_COMPARISON_BASE_URL" json:"base_url"`
	LogFile string        `env:"KAKEHASHI_COMPARISON_LOG_FILE" json:"log_file"`
	Models  []ModelParams `json:"models"`
}

func DefaultConfig() *Config {
	return &Config{
		Translator: TranslatorConfig{
			Provider:       "gemini",
			Model:          "gemini-3-flash-preview",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Relay: RelayConfig{
			ContextWindow: 10,
		},
		Suggest: SuggestConfig{
			Enabled:       true,
			ExpirySeconds: 30,
		},
		Comparison: ComparisonConfig{
			BaseURL: "http://localhost:1234/v1",
			LogFile: "comparison_log.csv",
			Models: []ModelParams{
				{ID: "qwen/qwen3-vl-4b", Temperature: 0.7, TopP: 0.8},
				{ID: "google/gemma-3-4b", Temperature: 1.0, TopP: 0.95},
			},
		},
	}
}

// LoadConfig reads the JSON config at path, applies KAKEHASHI_* env
// overrides, and validates the result. A missing file yields defaults
// plus env, so a token-only env deployment needs no file at all.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		// Pre-scan for user-provided models: unmarshalling into the
		// defaults would merge entries at matching indexes instead of
		// replacing the list.
		var tmp Config
		if err := json.Unmarshal(data, &tmp); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if len(tmp.Comparison.Models) > 0 {
			cfg.Comparison.Models = nil
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Relay.ContextWindow <= 0 {
		cfg.Relay.ContextWindow = 10
	}
	if cfg.Translator.MaxRetries < 0 {
		cfg.Translator.MaxRetries = 2
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks structural config invariants. Credential presence is
// checked separately by ValidateCredentials so onboard can write a
// starter config without secrets.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Relay.Pairings)*2)
	for i, p := range c.Relay.Pairings {
		if p.Source == "" || p.Target == "" {
			return fmt.Errorf("relay.pairings[%d]: source and target are required", i)
		}
		if _, dup := seen[p.Source]; dup {
			return fmt.Errorf("relay.pairings[%d]: channel %s already appears as a source", i, p.Source)
		}
		seen[p.Source] = struct{}{}
		// The reverse direction is derived from the target, so a target
		// reused elsewhere as a source would make routing ambiguous.
		if p.Target != p.Source {
			if _, dup := seen[p.Target]; dup {
				return fmt.Errorf("relay.pairings[%d]: channel %s already routed", i, p.Target)
			}
			seen[p.Target] = struct{}{}
		}
	}

	switch c.Translator.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("translator.provider %q not supported (want gemini or anthropic)", c.Translator.Provider)
	}

	if c.Comparison.Enabled && len(c.Comparison.Models) < 2 {
		return errors.New("comparison.enabled requires at least two models")
	}

	return nil
}

// ValidateCredentials enforces the startup-fatal credential checks.
func (c *Config) ValidateCredentials() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	if c.Translator.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
