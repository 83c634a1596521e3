package testsupport

import (
	"path/filepath"
	"testing"

	"jobmedia/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are zeroed so failure paths run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "state", "images")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Remote.BaseURL = "http://127.0.0.1:0"
	cfgVal.Upload.RetryDelayMS = 0
	cfgVal.MockServer.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseURL points the remote section at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url
	}
}

// WithBestEffort switches the upload mode to best_effort.
func WithBestEffort() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.Mode = config.UploadModeBestEffort
	}
}

// WithGroupSize overrides the upload group size.
func WithGroupSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.GroupSize = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
