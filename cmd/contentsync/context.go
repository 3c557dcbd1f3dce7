package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contentsync/internal/api"
	"contentsync/internal/config"
	"contentsync/internal/logging"
)

// commandContext resolves configuration and shared handles lazily so
// commands that never touch an instance (config show, history) do not
// require credentials.
type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	cfg    *config.Config
	logger *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

// instanceFlags carry per-command URL/token overrides.
type instanceFlags struct {
	url   string
	token string
}

func (c *commandContext) buildClient(section string, base config.Instance, overrides instanceFlags) (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	url := strings.TrimSpace(overrides.url)
	if url == "" {
		url = base.URL
	}
	token := strings.TrimSpace(overrides.token)
	if token == "" {
		token = base.Token
	}
	if url == "" {
		return nil, fmt.Errorf("%s instance URL is not configured; set [%s].url or pass --%s-url", section, section, section)
	}
	return api.New(api.Config{
		BaseURL:          url,
		Token:            token,
		Logger:           logger,
		RetryAttempts:    cfg.Sync.RetryAttempts,
		RetryMaxInterval: time.Duration(cfg.Sync.RetryMaxIntervalSec) * time.Second,
		HTTPClient:       &http.Client{Timeout: time.Duration(base.TimeoutSeconds) * time.Second},
	})
}
