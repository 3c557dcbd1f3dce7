package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeInstance(&c.Source, "CONTENTSYNC_SOURCE_TOKEN")
	c.normalizeInstance(&c.Target, "CONTENTSYNC_TARGET_TOKEN")
	c.normalizeSync()
	c.normalizeLogging()

	var err error
	if c.Paths.HistoryDB, err = expandPath(firstNonEmpty(c.Paths.HistoryDB, defaultHistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(firstNonEmpty(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInstance(instance *Instance, tokenEnv string) {
	instance.URL = strings.TrimRight(strings.TrimSpace(instance.URL), "/")
	instance.Token = strings.TrimSpace(instance.Token)
	if instance.Token == "" {
		instance.Token = strings.TrimSpace(os.Getenv(tokenEnv))
	}
	if instance.TimeoutSeconds <= 0 {
		instance.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeSync() {
	c.Sync.MappingCollection = strings.TrimSpace(c.Sync.MappingCollection)
	if c.Sync.MappingCollection == "" {
		c.Sync.MappingCollection = defaultMappingTable
	}
	if c.Sync.RetryAttempts <= 0 {
		c.Sync.RetryAttempts = defaultRetryAttempts
	}
	if c.Sync.RetryMaxIntervalSec <= 0 {
		c.Sync.RetryMaxIntervalSec = defaultRetryMaxInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
