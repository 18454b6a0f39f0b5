package medikeep

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment loads configuration from environment variables,
// following the 12-factor methodology. A .env file in the working directory
// is loaded first when present (development convenience; missing files are
// not an error).
//
// Recognized variables:
//   - MEDIKEEP_KEY_ALIAS: keystore alias for the record key
//   - MEDIKEEP_EXCERPT_LIMIT: summary-prompt excerpt budget (integer)
//
// Unset variables fall back to the package defaults via Validate.
func LoadConfigFromEnvironment() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		KeyAlias: os.Getenv(EnvKeyAlias),
	}

	if raw := os.Getenv(EnvExcerptLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfiguration, EnvExcerptLimit, raw)
		}
		cfg.ExcerptLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromFile loads configuration from a YAML file.
//
// Example file:
//
//	key_alias: medikeep-records-key
//	excerpt_limit: 400
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfiguration, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
