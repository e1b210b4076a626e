package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// DefaultHTTPTimeout bounds each Salesforce request when HTTP_TIMEOUT is unset.
const DefaultHTTPTimeout = 30 * time.Second

// Config selects and configures the token store used by the command line tools.
type Config struct {
	TokenStore    string
	TokenDir      string
	TokenName     string
	EncryptionKey []byte
	HTTPTimeout   time.Duration
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		TokenStore: strings.ToLower(strings.TrimSpace(os.Getenv("TOKEN_STORE"))),
		TokenDir:   os.Getenv("TOKEN_DIR"),
		TokenName:  os.Getenv("TOKEN_NAME"),
	}

	if cfg.TokenStore == "" {
		cfg.TokenStore = StoreFile
	}
	if cfg.TokenDir == "" {
		cfg.TokenDir = ".secrets"
	}

	cfg.HTTPTimeout = DefaultHTTPTimeout
	if raw := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TIMEOUT must be a duration such as 30s: %w", err)
		}
		cfg.HTTPTimeout = timeout
	}

	if raw := strings.TrimSpace(os.Getenv("TOKEN_ENCRYPTION_KEY")); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be base64: %w", err)
		}
		cfg.EncryptionKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.TokenStore {
	case StoreFile:
		if c.TokenDir == "" {
			return fmt.Errorf("TOKEN_DIR is required for the file token store")
		}
	case StorePostgres:
	default:
		return fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.TokenStore)
	}
	if c.EncryptionKey != nil && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(c.EncryptionKey))
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}
