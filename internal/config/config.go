// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	// Telegram
	TelegramBotToken      string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookURL    string  `env:"TELEGRAM_WEBHOOK_URL"`
	TelegramWebhookSecret string  `env:"TELEGRAM_WEBHOOK_SECRET"`
	BotUsername           string  `env:"BOT_USERNAME" envDefault:"oleg_bot"`
	AdminUserIDs          []int64 `env:"ADMIN_USER_IDS" envSeparator:","`

	// AI backend
	AIProvider   string `env:"AI_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`

	// Participation tuning
	WindowSize       int     `env:"WINDOW_SIZE" envDefault:"50"`
	ReplyTargetRatio float64 `env:"REPLY_TARGET_RATIO" envDefault:"0.10"`
	GapMinSeconds    int     `env:"GAP_MIN_SECONDS" envDefault:"20"`

	// Server
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8000"`
	StoragePath string `env:"STORAGE_PATH" envDefault:"data/settings.json"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file found, using system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("config: TELEGRAM_BOT_TOKEN is not set")
	}
	if cfg.AIProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("config: OPENAI_API_KEY is required for the openai provider")
	}
	return cfg, nil
}
