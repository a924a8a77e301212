package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains application-wide settings sourced from the environment.
type Config struct {
	DatabaseURL       string
	Addr              string
	JWTSecret         string
	AllowedOrigins    []string
	LogLevel          string
	LogFormat         string
	BootstrapDemoData bool
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")

	cfg := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Addr:              fmt.Sprintf(":%s", envOrDefault("PORT", "8080")),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedOrigins:    parseAllowedOrigins(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		BootstrapDemoData: strings.EqualFold(os.Getenv("BOOTSTRAP_DEMO_DATA"), "true"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate collects every configuration problem into one error.
func (c Config) Validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL env var is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET env var is required")
	} else if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 bytes")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseAllowedOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	var origins []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
