package salesforce

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	// DefaultAPIVersion is used for sobject CRUD endpoints.
	DefaultAPIVersion = "v20.0"
	// DefaultQueryAPIVersion is used for the SOQL query endpoint.
	DefaultQueryAPIVersion = "v24.0"
)

type Config struct {
	LoginURL        string
	ClientID        string
	ClientSecret    string
	APIVersion      string
	QueryAPIVersion string
}

func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		LoginURL:        os.Getenv("SF_LOGIN_URL"),
		ClientID:        os.Getenv("SF_CLIENT_ID"),
		ClientSecret:    os.Getenv("SF_CLIENT_SECRET"),
		APIVersion:      os.Getenv("SF_API_VERSION"),
		QueryAPIVersion: os.Getenv("SF_QUERY_API_VERSION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LoginURL == "" {
		return fmt.Errorf("SF_LOGIN_URL is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("SF_CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("SF_CLIENT_SECRET is required")
	}
	// API versions are optional and fall back to the defaults
	return nil
}

func (c *Config) apiVersion() string {
	if c.APIVersion == "" {
		return DefaultAPIVersion
	}
	return c.APIVersion
}

func (c *Config) queryAPIVersion() string {
	if c.QueryAPIVersion == "" {
		return DefaultQueryAPIVersion
	}
	return c.QueryAPIVersion
}
