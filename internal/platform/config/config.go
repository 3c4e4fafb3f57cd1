package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures everything the server reads from the environment. A local
// .env file is honored when present so development does not need exported vars.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Environment string `env:"ENV" envDefault:"development"`

	DatabaseURL string `env:"DATABASE_URL"`
	Migrate     bool   `env:"MIGRATE" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"8h"`

	RedisURL string `env:"REDIS_URL"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"academy.audit"`

	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW" envDefault:"15m"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		// Development fallback only; a production start without a secret fails above.
		cfg.JWTSecret = "dev-secret-key-change-in-production"
	}

	return &cfg, nil
}
