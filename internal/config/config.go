package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimezone is the single timezone all scheduling math runs in unless
// SCHEDULE_TIMEZONE overrides it.
const DefaultTimezone = "Asia/Tokyo"

type Config struct {
	DBDSN            string
	Environment      string
	ScheduleTimezone string
	MigrationsPath   string

	location *time.Location
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win either way.
	if err := godotenv.Load(".env"); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:            os.Getenv("DB_DSN"),
		Environment:      os.Getenv("ENV"),
		ScheduleTimezone: os.Getenv("SCHEDULE_TIMEZONE"),
		MigrationsPath:   os.Getenv("MIGRATIONS_PATH"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.ScheduleTimezone == "" {
		cfg.ScheduleTimezone = DefaultTimezone
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", cfg.ScheduleTimezone, err)
	}
	cfg.location = loc

	return cfg, nil
}

// Location returns the configured scheduling timezone.
func (c *Config) Location() *time.Location {
	return c.location
}
