package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	TutorID   int64  `envconfig:"TUTOR_ID" required:"true"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/helpertutor.db"`
	DefaultTZ string `envconfig:"DEFAULT_TZ" default:"Europe/Moscow"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads .env (best effort) and the environment into Config.
// A failure here is the only fatal error class: it happens at startup,
// before any scheduling begins.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return cfg, fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	return cfg, nil
}

// DefaultLocation loads the configured default zone. Load already validated it.
func (c Config) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
