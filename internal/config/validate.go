package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireBaseURL reports a descriptive error when no backend is configured.
// Commands that only touch local state skip this check.
func (c *Config) RequireBaseURL() error {
	if c.Remote.BaseURL != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/jobmedia/config.toml"
	}
	return fmt.Errorf("remote.base_url is required. Set JOBMEDIA_BASE_URL or edit %s (create with 'jobmedia config init')", defaultPath)
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL != "" {
		parsed, err := url.Parse(c.Remote.BaseURL)
		if err != nil {
			return fmt.Errorf("remote.base_url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("remote.base_url must use http or https, got %q", c.Remote.BaseURL)
		}
		if parsed.Host == "" {
			return fmt.Errorf("remote.base_url is missing a host: %q", c.Remote.BaseURL)
		}
	}
	if c.Remote.RequestTimeout < 0 {
		return errors.New("remote.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.GroupSize < 1 {
		return errors.New("upload.group_size must be at least 1")
	}
	if c.Upload.MaxAttempts < 1 {
		return errors.New("upload.max_attempts must be at least 1")
	}
	if c.Upload.RetryDelayMS < 0 {
		return errors.New("upload.retry_delay_ms must not be negative")
	}
	switch c.Upload.Mode {
	case UploadModeFailFast, UploadModeBestEffort:
	default:
		return fmt.Errorf("upload.mode must be %q or %q, got %q", UploadModeFailFast, UploadModeBestEffort, c.Upload.Mode)
	}
	return nil
}

func (c *Config) validateLogging() error {
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
