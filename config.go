package medikeep

import "fmt"

// Config holds the configuration for the record-keeper core.
//
// This struct contains only data, no behavior. Configuration can be loaded
// from any source (environment variables, a YAML file, code) and passed
// explicitly to the constructors.
//
// All fields are optional; Validate applies defaults:
//   - KeyAlias: keystore alias for the record key (default: DefaultKeyAlias)
//   - ExcerptLimit: per-record character budget for summary prompts
//     (default: DefaultExcerptLimit)
type Config struct {
	// KeyAlias is the keystore alias under which the symmetric record key
	// is stored. Each installation should use a stable alias; changing it
	// orphans previously written records.
	KeyAlias string `yaml:"key_alias"`

	// ExcerptLimit bounds how many characters of a record's extracted text
	// are included when building the doctor-summary prompt. Truncation is
	// silent.
	ExcerptLimit int `yaml:"excerpt_limit"`
}

// Validate checks the configuration and applies defaults to empty fields.
func (c *Config) Validate() error {
	if c.KeyAlias == "" {
		c.KeyAlias = DefaultKeyAlias
	}
	if c.ExcerptLimit == 0 {
		c.ExcerptLimit = DefaultExcerptLimit
	}
	if c.ExcerptLimit < 0 {
		return fmt.Errorf("%w: ExcerptLimit must be positive, got %d", ErrInvalidConfiguration, c.ExcerptLimit)
	}
	return nil
}
