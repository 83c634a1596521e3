package config

const (
	// UploadModeFailFast stops a batch before the next group once any item has
	// exhausted its retries.
	UploadModeFailFast = "fail_fast"
	// UploadModeBestEffort keeps processing later groups after item failures.
	UploadModeBestEffort = "best_effort"
)

const (
	defaultStateDir        = "~/.local/share/jobmedia"
	defaultImagesDirName   = "images"
	defaultLogDir          = "~/.local/share/jobmedia/logs"
	defaultContainer       = "app-uploads"
	defaultDynamicFilename = "JobMedia"
	defaultRootFolder      = "ALL CUSTOMERS"
	defaultRequestTimeout  = 60
	defaultGroupSize       = 5
	defaultMaxAttempts     = 5
	defaultRetryDelayMS    = 1000
	defaultUploadMode      = UploadModeFailFast
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultMockServerBind  = "127.0.0.1:7488"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Remote: Remote{
			Container:       defaultContainer,
			DynamicFilename: defaultDynamicFilename,
			RootFolder:      defaultRootFolder,
			RequestTimeout:  defaultRequestTimeout,
		},
		Upload: Upload{
			GroupSize:    defaultGroupSize,
			MaxAttempts:  defaultMaxAttempts,
			RetryDelayMS: defaultRetryDelayMS,
			Mode:         defaultUploadMode,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		MockServer: MockServer{
			Bind: defaultMockServerBind,
		},
	}
}
