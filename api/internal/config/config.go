package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Engine is the provider used when a request names none.
	Engine string `yaml:"engine"`

	OpenAI   OpenAIConfig   `yaml:"openai"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Telegram TelegramConfig `yaml:"telegram"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Log      LogConfig      `yaml:"log"`

	RequestTimeout string `yaml:"request_timeout"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// WebhookURL switches the bot from long polling to webhook mode.
	WebhookURL string `yaml:"webhook_url"`
}

type BreakerConfig struct {
	ConsecutiveFailures int    `yaml:"consecutive_failures"`
	OpenTimeout         string `yaml:"open_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:   "8000",
		Engine: "gpt",
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			OpenTimeout:         "30s",
		},
		Log:            LogConfig{Level: "info", Format: "json"},
		RequestTimeout: "60s",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Engine = getEnv("AGRIMIND_ENGINE", c.Engine)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)

	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.WebhookURL = getEnv("WEBHOOK_URL", c.Telegram.WebhookURL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	if c.OpenAI.APIKey == "" && c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("no provider configured: set OPENAI_API_KEY or GEMINI_API_KEY"))
	}
	switch strings.ToLower(c.Engine) {
	case "gpt", "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("engine %q has no api key", c.Engine))
		}
	case "gemini", "google":
		if c.Gemini.APIKey == "" {
			errs = append(errs, fmt.Errorf("engine %q has no api key", c.Engine))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	if c.Breaker.ConsecutiveFailures < 1 {
		errs = append(errs, errors.New("breaker.consecutive_failures must be >= 1"))
	}
	if _, err := parseDuration("request_timeout", c.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("breaker.open_timeout", c.Breaker.OpenTimeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) GetRequestTimeout() time.Duration {
	d, err := parseDuration("request_timeout", c.RequestTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

func (c *Config) GetBreakerOpenTimeout() time.Duration {
	d, err := parseDuration("breaker.open_timeout", c.Breaker.OpenTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, s)
	}
	return d, nil
}
