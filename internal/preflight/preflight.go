package preflight

import (
	"context"

	"jobmedia/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Probes carries the live dependencies checked by RunAll. Nil fields are
// reported as unavailable.
type Probes struct {
	Queue   HealthChecker
	Backend JobCodeFetcher
}

// RunAll executes every check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, probes Probes) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Images directory", cfg.Paths.ImagesDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckQueueDatabase(ctx, probes.Queue),
	}
	if cfg.Remote.BaseURL == "" {
		results = append(results, Result{Name: backendCheckName, Detail: "remote.base_url is not set"})
	} else {
		results = append(results, CheckBackend(ctx, cfg.Remote.BaseURL, probes.Backend))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
