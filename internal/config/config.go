// Package config loads runtime settings from the environment.
//
// LOAD ORDER:
//  1. godotenv reads an optional .env file into the process environment.
//     Variables that are already set win over the file.
//  2. viper supplies a default for every key and reads the environment
//     through AutomaticEnv, so `PORT=6000 ./server` just works.
//  3. The values are copied into a typed Config and checked. Every problem
//     is reported at once via errors.Join so a broken deployment can be
//     fixed in one go.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends accepted by DB_DRIVER.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Port         int
	PortAttempts int

	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DBPath        string

	JWTSecret   string
	CORSOrigins []string

	RateLimit     int
	RateWindow    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AdminName      string
	AdminEmail     string
	AdminPassword  string
	AdminGender    string
	AdminBatchYear int
	SeedSamples    bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	LogLevel  slog.Level
	LogFormat string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("PORT", 5000)
	v.SetDefault("PORT_ATTEMPTS", 3)

	v.SetDefault("DB_DRIVER", DriverMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "alumni")
	v.SetDefault("DB_PATH", "data/alumni.db")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	v.SetDefault("RATE_LIMIT", 100)
	v.SetDefault("RATE_WINDOW", 15*time.Minute)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_NAME", "Admin User")
	v.SetDefault("ADMIN_EMAIL", "admin@jnv.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("ADMIN_GENDER", "male")
	v.SetDefault("ADMIN_BATCH_YEAR", 2000)
	v.SetDefault("SEED_SAMPLES", true)

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already-populated viper instance.
// Tests use it with v.Set overrides instead of touching the environment.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:               v.GetInt("PORT"),
		PortAttempts:       v.GetInt("PORT_ATTEMPTS"),
		DBDriver:           strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		MongoURI:           v.GetString("MONGODB_URI"),
		MongoDatabase:      v.GetString("MONGODB_DATABASE"),
		DBPath:             v.GetString("DB_PATH"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		RateLimit:          v.GetInt("RATE_LIMIT"),
		RateWindow:         v.GetDuration("RATE_WINDOW"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		AdminName:          v.GetString("ADMIN_NAME"),
		AdminEmail:         v.GetString("ADMIN_EMAIL"),
		AdminPassword:      v.GetString("ADMIN_PASSWORD"),
		AdminGender:        v.GetString("ADMIN_GENDER"),
		AdminBatchYear:     v.GetInt("ADMIN_BATCH_YEAR"),
		SeedSamples:        v.GetBool("SEED_SAMPLES"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		LogFormat:          strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	var errs []error

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port))
	}
	if cfg.PortAttempts < 1 {
		errs = append(errs, fmt.Errorf("PORT_ATTEMPTS must be at least 1, got %d", cfg.PortAttempts))
	}
	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}

	switch cfg.DBDriver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when DB_DRIVER=mongo"))
		}
		if cfg.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGODB_DATABASE is required when DB_DRIVER=mongo"))
		}
	case DriverSQLite:
		if cfg.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required when DB_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMongo, DriverSQLite, cfg.DBDriver))
	}

	if cfg.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be at least 1, got %d", cfg.RateLimit))
	}
	if cfg.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_WINDOW must be positive, got %s", cfg.RateWindow))
	}
	if cfg.GoogleEnabled() && cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
