// Package config loads the store credentials the rest of the core is handed
// at startup. Credentials are read once and treated as immutable.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Credentials identifies one Shopware store and the integration allowed to
// talk to its Admin API. BaseURL never carries a trailing slash.
type Credentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Load reads credentials from the environment (a .env file is honored when
// present). STORE_URL, API_KEY and API_SECRET are all required.
func Load() (Credentials, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for _, key := range []string{"STORE_URL", "API_KEY", "API_SECRET"} {
		if err := v.BindEnv(key); err != nil {
			return Credentials{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return FromValues(v.GetString("STORE_URL"), v.GetString("API_KEY"), v.GetString("API_SECRET"))
}

// FromValues builds credentials from explicit values, normalizing the base
// URL. Used by Load and by the CLI when flags override the environment.
func FromValues(storeURL, apiKey, apiSecret string) (Credentials, error) {
	storeURL = strings.TrimSpace(storeURL)
	apiKey = strings.TrimSpace(apiKey)
	apiSecret = strings.TrimSpace(apiSecret)

	var missing []string
	if storeURL == "" {
		missing = append(missing, "STORE_URL")
	}
	if apiKey == "" {
		missing = append(missing, "API_KEY")
	}
	if apiSecret == "" {
		missing = append(missing, "API_SECRET")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(storeURL, "http://") && !strings.HasPrefix(storeURL, "https://") {
		return Credentials{}, fmt.Errorf("STORE_URL must be an http(s) URL, got %q", storeURL)
	}

	return Credentials{
		BaseURL:      strings.TrimRight(storeURL, "/"),
		ClientID:     apiKey,
		ClientSecret: apiSecret,
	}, nil
}
