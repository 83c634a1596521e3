package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
	"jobmedia/internal/services"
)

const backendCheckName = "Backend"

// BackendTimeout bounds the backend reachability probe.
var BackendTimeout = 5 * time.Second

// HealthChecker is satisfied by *queue.Store.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// JobCodeFetcher is satisfied by *remote.Client.
type JobCodeFetcher interface {
	JobCodes(ctx context.Context) ([]remote.JobCode, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckQueueDatabase runs the store's integrity check.
func CheckQueueDatabase(ctx context.Context, checker HealthChecker) Result {
	const name = "Queue database"
	if checker == nil {
		return Result{Name: name, Detail: "unavailable"}
	}
	health, err := checker.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.DBPath, err)}
	}
	if !health.IntegrityCheck {
		detail := "integrity check failed"
		if health.Error != "" {
			detail = health.Error
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", health.DBPath, detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("schema v%d, %d queued", health.SchemaVersion, health.QueuedImages)}
}

// CheckBackend fetches the job-code catalogue once, without retries.
func CheckBackend(ctx context.Context, baseURL string, fetcher JobCodeFetcher) Result {
	if fetcher == nil {
		return Result{Name: backendCheckName, Detail: fmt.Sprintf("%s (error: client unavailable)", baseURL)}
	}
	checkCtx, cancel := context.WithTimeout(ctx, BackendTimeout)
	defer cancel()

	codes, err := fetcher.JobCodes(checkCtx)
	if err != nil {
		return Result{Name: backendCheckName, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeBackendError(err))}
	}
	return Result{Name: backendCheckName, Passed: true, Detail: fmt.Sprintf("%s (reachable, %d job codes)", baseURL, len(codes))}
}

func summarizeBackendError(err error) string {
	var statusErr *remote.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("HTTP %d", statusErr.Status)
	default:
		return fmt.Sprintf("%s error: %v", services.Kind(err), err)
	}
}
