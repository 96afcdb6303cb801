// Package config loads and validates process configuration from the
// environment, an optional config file, and CLI flags (bound via viper).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds everything the process needs at start.
type Config struct {
	Env         string
	Host        string
	Port        int
	DatabaseURL string
	JWTSecret   string
	RedisURL    string
	AppURL      string
	CORSOrigins []string
	LogLevel    string
}

// Load reads configuration from viper. Call after viper is initialized
// (env prefix, config file, flag bindings).
func Load() *Config {
	cfg := &Config{
		Env:         viper.GetString("env"),
		Host:        viper.GetString("server.host"),
		Port:        viper.GetInt("server.port"),
		DatabaseURL: viper.GetString("database_url"),
		JWTSecret:   viper.GetString("jwt_secret"),
		RedisURL:    viper.GetString("redis_url"),
		AppURL:      viper.GetString("app_url"),
		CORSOrigins: viper.GetStringSlice("cors.origins"),
		LogLevel:    viper.GetString("log_level"),
	}

	if cfg.Env == "" {
		cfg.Env = EnvDevelopment
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if len(cfg.CORSOrigins) == 0 {
		if cfg.IsProduction() && cfg.AppURL != "" {
			cfg.CORSOrigins = []string{cfg.AppURL}
		} else {
			cfg.CORSOrigins = []string{"http://localhost:3000"}
		}
	}
	return cfg
}

// IsProduction reports whether the process runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate enforces the startup requirements: the process refuses to start
// without a database URL and signing secret, and in production additionally
// refuses a short secret or a file-backed database.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "database_url")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "jwt_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.IsProduction() {
		if len(c.JWTSecret) < 32 {
			return errors.New("jwt_secret must be at least 32 characters in production")
		}
		if isFileBacked(c.DatabaseURL) {
			return errors.New("sqlite is not supported in production; use a networked database")
		}
	}
	return nil
}

// isFileBacked reports whether the database URL points at a non-networked
// (SQLite) backend.
func isFileBacked(databaseURL string) bool {
	return databaseURL == ":memory:" ||
		strings.HasPrefix(databaseURL, "file:") ||
		(!strings.Contains(databaseURL, "://") && !strings.HasPrefix(databaseURL, "mysql:"))
}
