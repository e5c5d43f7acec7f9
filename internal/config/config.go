// Package config содержит логику чтения конфигурации сервиса пиццерии.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultPlacementDelay  = 700 * time.Millisecond
	defaultReceiptTimezone = "Asia/Kolkata"
	defaultAllowedOrigins  = "http://localhost:3000,http://localhost:5173"
	defaultSessionTTL      = 30 * time.Minute
)

// Config содержит параметры конфигурации сервиса пиццерии.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	CatalogPath     string        `env:"CATALOG_PATH"`
	PlacementDelay  time.Duration `env:"PLACEMENT_DELAY"`
	SessionSecret   string        `env:"SESSION_SECRET"`
	ReceiptTimezone string        `env:"RECEIPT_TIMEZONE"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	SessionTTL      time.Duration `env:"SESSION_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами. Для длительностей учитывается само
// наличие переменной, поэтому PLACEMENT_DELAY=0 отключает задержку.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	var origins string
	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.CatalogPath, "c", "", "path to YAML catalog file")
	flag.DurationVar(&cfg.PlacementDelay, "p", defaultPlacementDelay, "simulated order placement delay")
	flag.StringVar(&cfg.SessionSecret, "s", "", "session cookie signing secret")
	flag.StringVar(&cfg.ReceiptTimezone, "t", defaultReceiptTimezone, "timezone for receipt dates")
	flag.StringVar(&origins, "o", defaultAllowedOrigins, "comma separated CORS allowed origins, * for same-origin clients")
	flag.DurationVar(&cfg.SessionTTL, "i", defaultSessionTTL, "idle time before a session is evicted from memory, 0 disables eviction")

	flag.Parse()

	cfg.AllowedOrigins = splitList(origins)

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.CatalogPath != "" {
		cfg.CatalogPath = envCfg.CatalogPath
	}
	if v, ok := os.LookupEnv("PLACEMENT_DELAY"); ok && v != "" {
		cfg.PlacementDelay = envCfg.PlacementDelay
	}
	if v, ok := os.LookupEnv("SESSION_TTL"); ok && v != "" {
		cfg.SessionTTL = envCfg.SessionTTL
	}
	if envCfg.SessionSecret != "" {
		cfg.SessionSecret = envCfg.SessionSecret
	}
	if envCfg.ReceiptTimezone != "" {
		cfg.ReceiptTimezone = envCfg.ReceiptTimezone
	}
	if len(envCfg.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = envCfg.AllowedOrigins
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.PlacementDelay < 0 {
		return nil, fmt.Errorf("placement delay must not be negative: %s", cfg.PlacementDelay)
	}
	if cfg.SessionTTL < 0 {
		return nil, fmt.Errorf("session ttl must not be negative: %s", cfg.SessionTTL)
	}
	if cfg.ReceiptTimezone == "" {
		cfg.ReceiptTimezone = defaultReceiptTimezone
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = splitList(defaultAllowedOrigins)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
