package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the bot configuration, loaded from the environment.
type Config struct {
	BotToken        string   `env:"BOT_TOKEN,required"`
	AdminUsers      []string `env:"ADMIN_USERS" envSeparator:","`
	AdminChatID     int64    `env:"ADMIN_CHAT_ID"`
	StorageBackend  string   `env:"STORAGE_BACKEND" envDefault:"json"`
	EventsFile      string   `env:"EVENTS_FILE" envDefault:"events.json"`
	ResponsesFile   string   `env:"RESPONSES_FILE" envDefault:"responses.json"`
	SQLitePath      string   `env:"SQLITE_PATH" envDefault:"offkai.db"`
	DisplayTimezone string   `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Tokyo"`
	BotUsername     string   `env:"BOT_USERNAME"`

	location *time.Location
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i := range cfg.AdminUsers {
		cfg.AdminUsers[i] = strings.TrimSpace(cfg.AdminUsers[i])
	}

	switch cfg.StorageBackend {
	case BackendJSON, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q, want %q or %q",
			cfg.StorageBackend, BackendJSON, BackendSQLite)
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.DisplayTimezone, err)
	}
	cfg.location = loc

	if len(cfg.AdminUsers) == 0 {
		log.Println("warning: ADMIN_USERS not set, no users will have admin privileges")
	}
	return cfg, nil
}

// IsAdmin checks whether a username may run administrative commands.
func (c *Config) IsAdmin(username string) bool {
	for _, admin := range c.AdminUsers {
		if admin == username {
			return true
		}
	}
	return false
}

// Location is the timezone event times are displayed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return JST
	}
	return c.location
}
