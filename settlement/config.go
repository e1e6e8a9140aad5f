package settlement

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvKeyID        = "SECONDPRICE_KEY_ID"
	EnvSignProofs   = "SECONDPRICE_SIGN_PROOFS"
	EnvOutputFormat = "SECONDPRICE_OUTPUT_FORMAT"
)

// Config controls how auctions are settled and reported.
type Config struct {
	// KeyID names the proof signing key. Empty means a random UUID.
	KeyID string
	// SignProofs attaches a signed outcome proof to every response.
	//
	// Defaults to true.
	SignProofs bool
	// OutputFormat is "text" or "json".
	//
	// Defaults to "text".
	OutputFormat string
}

// LoadConfigFromEnv reads Config from the environment, applying defaults for
// unset variables.
func LoadConfigFromEnv() (Config, error) {
	signProofs, err := getEnvBool(EnvSignProofs, true)
	if err != nil {
		return Config{}, err
	}

	format := getEnvString(EnvOutputFormat, "text")
	if format != "text" && format != "json" {
		return Config{}, fmt.Errorf("invalid value for %s: %s (must be text or json)", EnvOutputFormat, format)
	}

	return Config{
		KeyID:        getEnvString(EnvKeyID, ""),
		SignProofs:   signProofs,
		OutputFormat: format,
	}, nil
}

// NewKeyManagerFromConfig returns nil when proofs are disabled.
func NewKeyManagerFromConfig(cfg Config) (*KeyManager, error) {
	if !cfg.SignProofs {
		log.Printf("INFO: Proof signing disabled")
		return nil, nil
	}

	keyManager, err := NewKeyManager(cfg.KeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}
	log.Printf("INFO: KeyManager initialized (key id %s)", keyManager.KeyID)
	return keyManager, nil
}

func getEnvString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	log.Printf("INFO: Using %s=%s from environment", key, value)
	return value
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %s (must be a boolean)", key, value)
	}

	log.Printf("INFO: Using %s=%t from environment", key, boolValue)
	return boolValue, nil
}
