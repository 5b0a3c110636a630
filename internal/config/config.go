package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	// Audience expected on incoming Google ID tokens.
	GoogleClientID string

	// HMAC secret for session tokens issued by this service.
	TokenAuthSecret string

	// Directory with the built SPA; empty disables static serving.
	StaticDir string

	RequestTimeout time.Duration
}

func FromEnv() (Config, error) {
	var c Config

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	c.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if c.DatabaseURL == "" {
		return c, fmt.Errorf("DATABASE_URL is empty")
	}

	c.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	if c.GoogleClientID == "" {
		return c, fmt.Errorf("GOOGLE_CLIENT_ID is empty")
	}

	c.TokenAuthSecret = strings.TrimSpace(os.Getenv("TOKEN_AUTH_SECRET"))
	if c.TokenAuthSecret == "" {
		return c, fmt.Errorf("TOKEN_AUTH_SECRET is empty")
	}

	c.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))

	c.RequestTimeout = 10 * time.Second
	if raw := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}

	return c, nil
}
