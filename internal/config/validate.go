package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. Instance URLs are optional
// at load time (they may arrive as CLI flags) but must parse when present.
func (c *Config) Validate() error {
	if err := validateInstance("source", c.Source); err != nil {
		return err
	}
	if err := validateInstance("target", c.Target); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateInstance(section string, instance Instance) error {
	if instance.URL == "" {
		return nil
	}
	parsed, err := url.Parse(instance.URL)
	if err != nil {
		return fmt.Errorf("%s.url: %w", section, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s.url must use http or https, got %q", section, instance.URL)
	}
	return nil
}
