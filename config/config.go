package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	UnsolvedForward = "forward"
	UnsolvedFail    = "fail"
)

type Config struct {
	Token   string `envconfig:"DEEPSEEK_TOKEN"`
	BaseURL string `envconfig:"DEEPSEEK_BASE_URL" default:"https://chat.deepseek.com/api/v0/"`

	ClientLocale   string `envconfig:"DEEPSEEK_CLIENT_LOCALE" default:"en_US"`
	AppVersion     string `envconfig:"DEEPSEEK_APP_VERSION" default:"20241129.1"`
	ClientVersion  string `envconfig:"DEEPSEEK_CLIENT_VERSION" default:"1.0.0-always"`
	ClientPlatform string `envconfig:"DEEPSEEK_CLIENT_PLATFORM" default:"web"`

	Proxy   string        `envconfig:"PROXY"`
	Timeout time.Duration `envconfig:"DEEPSEEK_TIMEOUT" default:"0s"`

	PoWMaxAttempts int64  `envconfig:"DEEPSEEK_POW_MAX_ATTEMPTS" default:"0"`
	PoWRetries     int    `envconfig:"DEEPSEEK_POW_RETRIES" default:"0"`
	PoWUnsolved    string `envconfig:"DEEPSEEK_POW_UNSOLVED" default:"forward"`

	ListenAddr    string `envconfig:"LISTEN_ADDR" default:":8080"`
	ImitateAPIKey string `envconfig:"IMITATE_API_KEY"`
}

// Load reads an optional .env file, then binds the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.PoWUnsolved {
	case UnsolvedForward, UnsolvedFail:
	default:
		return fmt.Errorf("DEEPSEEK_POW_UNSOLVED must be %q or %q, got %q", UnsolvedForward, UnsolvedFail, c.PoWUnsolved)
	}
	if c.PoWRetries < 0 {
		return fmt.Errorf("DEEPSEEK_POW_RETRIES must not be negative, got %d", c.PoWRetries)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("DEEPSEEK_BASE_URL must not be empty")
	}
	return nil
}
