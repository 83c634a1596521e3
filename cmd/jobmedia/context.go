package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"jobmedia/internal/config"
	"jobmedia/internal/imagestore"
	"jobmedia/internal/jobcodes"
	"jobmedia/internal/logging"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
	"jobmedia/internal/upload"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withStore opens the queue database for the duration of fn.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withLockedStore is withStore for commands that change the queue or the
// selection. It holds the upload run lock so it cannot race a running upload.
func (c *commandContext) withLockedStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	release, err := upload.NewRunLock(cfg.RunLockPath()).Acquire()
	if err != nil {
		return err
	}
	defer release()
	return c.withStore(fn)
}

func (c *commandContext) library() (*imagestore.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return imagestore.Open(cfg.Paths.ImagesDir)
}

func (c *commandContext) remoteClient() (*remote.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return remote.NewFromConfig(cfg, logger)
}

// catalog builds the job-code catalogue. Without a configured backend it
// serves the cache only.
func (c *commandContext) catalog(store *queue.Store) (*jobcodes.Catalog, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := c.remoteClient()
	if err != nil {
		cfg, _ := c.ensureConfig()
		if cfg != nil && cfg.Remote.BaseURL == "" {
			return jobcodes.New(nil, store, logger), nil
		}
		return nil, err
	}
	return jobcodes.New(client, store, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var errNoMatch = errors.New("no queued image matches")
