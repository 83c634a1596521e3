package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeUpload()
	c.normalizeLogging()
	c.MockServer.Bind = strings.TrimSpace(c.MockServer.Bind)
	if c.MockServer.Bind == "" {
		c.MockServer.Bind = defaultMockServerBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		c.Paths.ImagesDir = filepath.Join(c.Paths.StateDir, defaultImagesDirName)
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimSpace(c.Remote.BaseURL)
	if c.Remote.BaseURL == "" {
		if value, ok := os.LookupEnv("JOBMEDIA_BASE_URL"); ok {
			c.Remote.BaseURL = strings.TrimSpace(value)
		}
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	c.Remote.Container = strings.TrimSpace(c.Remote.Container)
	if c.Remote.Container == "" {
		c.Remote.Container = defaultContainer
	}
	c.Remote.DynamicFilename = strings.TrimSpace(c.Remote.DynamicFilename)
	if c.Remote.DynamicFilename == "" {
		c.Remote.DynamicFilename = defaultDynamicFilename
	}
	if strings.TrimSpace(c.Remote.RootFolder) == "" {
		c.Remote.RootFolder = defaultRootFolder
	}
	if c.Remote.RequestTimeout == 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.GroupSize == 0 {
		c.Upload.GroupSize = defaultGroupSize
	}
	if c.Upload.MaxAttempts == 0 {
		c.Upload.MaxAttempts = defaultMaxAttempts
	}
	c.Upload.Mode = strings.ToLower(strings.TrimSpace(c.Upload.Mode))
	c.Upload.Mode = strings.ReplaceAll(c.Upload.Mode, "-", "_")
	if c.Upload.Mode == "" {
		c.Upload.Mode = defaultUploadMode
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
