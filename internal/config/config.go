package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries everything the bot needs from the environment.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	Prefix   string `env:"DEFAULT_PREFIX" envDefault:"e"`

	// Store selects the persistence backend: postgres, sqlite, or memory.
	Store       string `env:"STORE" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"host=localhost port=5432 user=postgres password=password dbname=allbot sslmode=disable"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"allbot.db"`

	AdminIDs []string `env:"ADMIN_IDS" envSeparator:","`

	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	JWTSecret         string `env:"JWT_SECRET"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	ProposalWindow   time.Duration `env:"PROPOSAL_WINDOW" envDefault:"60s"`
	AffinityCooldown time.Duration `env:"AFFINITY_COOLDOWN" envDefault:"1h"`
}

// Load reads .env when present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file found")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	return cfg, nil
}
