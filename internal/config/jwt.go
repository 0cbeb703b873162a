// Package config provides JWT configuration functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// JWTConfig holds configuration for bearer token signing and validation.
type JWTConfig struct {
	Secret          string
	Algorithm       string
	ExpirationHours int
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET_KEY (required), JWT_ALGORITHM (default: HS256) and
// JWT_EXPIRATION_HOURS (default: 24, used only when minting tokens).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return nil, &ConfigurationError{Key: "JWT_SECRET_KEY", Reason: "is required"}
	}

	algorithm := strings.ToUpper(strings.TrimSpace(os.Getenv("JWT_ALGORITHM")))
	if algorithm == "" {
		algorithm = "HS256" // default
	}

	expirationStr := os.Getenv("JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24"
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
	}

	config := &JWTConfig{
		Secret:          secret,
		Algorithm:       algorithm,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY cannot be empty")
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512, got: %s", c.Algorithm)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
