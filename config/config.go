// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret, required by `osl serve` only.
	JWTSecret string
	// Operators allowed on admin-only routes.
	AdminOperators []string

	Debug bool
	Port  string

	// Import pipeline.
	ImportRetries    int
	StrictFormula    bool
	RecomputeWorkers int

	// Sources.
	LiftControlBaseURL  string
	LiftControlRegistry string
	HTTPTimeout         time.Duration
	MySQLDSN            string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "osl")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "openstreetlifting")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("DEBUG", false)
	v.SetDefault("IMPORT_RETRIES", 3)
	v.SetDefault("STRICT_FORMULA", false)
	v.SetDefault("RECOMPUTE_WORKERS", 8)
	v.SetDefault("LIFTCONTROL_BASE_URL", "https://liftcontrol.fr")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("ADMIN_OPERATORS", "admin")

	return &Config{
		DatabaseURL:         v.GetString("DATABASE_URL"),
		DBUser:              v.GetString("DB_USER"),
		DBPass:              v.GetString("DB_PASS"),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBName:              v.GetString("DB_NAME"),
		DBSSLMode:           v.GetString("DB_SSLMODE"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		AdminOperators:      splitList(v.GetString("ADMIN_OPERATORS")),
		Debug:               v.GetBool("DEBUG"),
		Port:                v.GetString("PORT"),
		ImportRetries:       v.GetInt("IMPORT_RETRIES"),
		StrictFormula:       v.GetBool("STRICT_FORMULA"),
		RecomputeWorkers:    v.GetInt("RECOMPUTE_WORKERS"),
		LiftControlBaseURL:  v.GetString("LIFTCONTROL_BASE_URL"),
		LiftControlRegistry: v.GetString("LIFTCONTROL_REGISTRY"),
		HTTPTimeout:         v.GetDuration("HTTP_TIMEOUT"),
		MySQLDSN:            v.GetString("MYSQL_DSN"),
	}
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// Validate checks the settings every database-backed command needs.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return errors.New("config: DATABASE_URL or DB_PASS must be set")
	}
	if c.ImportRetries < 0 {
		return fmt.Errorf("config: IMPORT_RETRIES must be >= 0, got %d", c.ImportRetries)
	}
	if c.RecomputeWorkers < 1 {
		return fmt.Errorf("config: RECOMPUTE_WORKERS must be >= 1, got %d", c.RecomputeWorkers)
	}
	return nil
}

// ValidateServer additionally requires the JWT secret.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	return nil
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

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}
