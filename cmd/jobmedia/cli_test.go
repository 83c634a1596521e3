package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobmedia/internal/config"
	"jobmedia/internal/mockremote"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
	"jobmedia/internal/testsupport"
	"jobmedia/internal/upload"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *mockremote.Server
	configPath string
	sources    []string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("JOBMEDIA_BASE_URL", "")

	backend := mockremote.New(mockremote.WithJobCodes(
		remote.JobCode{Code: "GNP-100", Name: "Gnome Park"},
		remote.JobCode{Code: "ABC-1", Name: "Alpha Yard"},
	))
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(server.URL), testsupport.WithGroupSize(2))
	configPath := filepath.Join(base, "jobmedia.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		configPath: configPath,
		sources:    testsupport.WriteImages(t, filepath.Join(base, "picked"), "jpg", 3),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nimages_dir = %q\nlog_dir = %q\n\n[remote]\nbase_url = %q\n\n[upload]\ngroup_size = %d\nretry_delay_ms = 0\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.StateDir,
		cfg.Paths.ImagesDir,
		cfg.Paths.LogDir,
		cfg.Remote.BaseURL,
		cfg.Upload.GroupSize,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func queuedImages(t *testing.T, env *cliTestEnv) []*queue.Image {
	t.Helper()
	store := testsupport.MustOpenStore(t, env.cfg)
	images, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	return images
}

func TestAddAndListQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, append([]string{"add"}, env.sources...)...)
	requireContains(t, out, "3 image(s) waiting for upload")

	out = mustRunCLI(t, env, "queue", "list")
	requireContains(t, out, "3 image(s)")

	out = mustRunCLI(t, env, "queue", "list", "--json")
	var entries []queueEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode queue json: %v\n%s", err, out)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Missing || entry.SizeBytes != int64(64+i) {
			t.Fatalf("entry %d: unexpected %+v", i, entry)
		}
		if filepath.Dir(entry.LocalRef) != env.cfg.Paths.ImagesDir {
			t.Fatalf("expected managed copy under %s, got %s", env.cfg.Paths.ImagesDir, entry.LocalRef)
		}
	}
	testsupport.AssertExists(t, env.sources[0])
}

func TestSelectFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "select", "job", "gnp-100")
	requireContains(t, out, "Selected job GNP-100 (Gnome Park)")

	out = mustRunCLI(t, env, "select", "type", "JP")
	requireContains(t, out, "Selected file type Job Progress for job GNP-100")

	mustRunCLI(t, env, append([]string{"add"}, env.sources[0])...)
	out = mustRunCLI(t, env, "select", "show", "--json")
	var view selectionView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode selection: %v", err)
	}
	if view.JobCode != "GNP-100" || view.JobName != "Gnome Park" || view.FileType != "job-progress" || !view.Ready {
		t.Fatalf("unexpected selection view: %+v", view)
	}

	mustRunCLI(t, env, "select", "job", "ABC-1")
	out = mustRunCLI(t, env, "select", "show", "--json")
	view = selectionView{}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode selection: %v", err)
	}
	if view.FileType != "" || view.Ready {
		t.Fatalf("expected file type cleared by new job code, got %+v", view)
	}
}

func TestSelectRejectsUnknownJobCode(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "select", "job", "NOPE-9")
	if err == nil || !strings.Contains(err.Error(), "unknown job code") {
		t.Fatalf("expected unknown job code error, got %v", err)
	}
}

func TestSelectTypeRequiresJobCode(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "select", "type", "job-survey")
	if err == nil || !strings.Contains(err.Error(), "select a job code first") {
		t.Fatalf("expected job code prerequisite error, got %v", err)
	}
}

func TestUploadCommandUploadsQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.SetNextIndex("GNP-100", "job-progress", 10)
	mustRunCLI(t, env, append([]string{"add"}, env.sources...)...)
	mustRunCLI(t, env, "select", "job", "GNP-100")
	mustRunCLI(t, env, "select", "type", "job-progress")

	out := mustRunCLI(t, env, "upload")
	requireContains(t, out, "Uploaded 3 of 3 image(s) for GNP-100 / Job Progress (indices 10-12)")

	blobs := env.backend.Blobs()
	if len(blobs) != 3 || blobs[0] != "ALL CUSTOMERS|GNP-100|job-progress|GNP-100-JP-10.jpg" {
		t.Fatalf("unexpected blobs: %v", blobs)
	}
	if images := queuedImages(t, env); len(images) != 0 {
		t.Fatalf("expected empty queue, got %d", len(images))
	}
	out = mustRunCLI(t, env, "queue", "list")
	requireContains(t, out, "Queue is empty")
}

func TestUploadCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Inject(mockremote.EndpointUpload, mockremote.FailAlways(mockremote.Fault{Message: "quota exceeded"}))
	mustRunCLI(t, env, "add", env.sources[0])
	mustRunCLI(t, env, "select", "job", "GNP-100")
	mustRunCLI(t, env, "select", "type", "freight-received")

	out, _, err := runCLI(t, env, "upload", "--json")
	if err == nil || !strings.Contains(err.Error(), "upload incomplete: 0 of 1") {
		t.Fatalf("expected incomplete upload error, got %v", err)
	}
	var result struct {
		Status   string `json:"status"`
		Failures []struct {
			Reason string `json:"reason"`
			Step   string `json:"step"`
		} `json:"failures"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if result.Status != "partial" || len(result.Failures) != 1 || result.Failures[0].Reason != "quota exceeded" {
		t.Fatalf("unexpected result: %+v", result)
	}
	images := queuedImages(t, env)
	if len(images) != 1 || images[0].LastError != "quota exceeded" {
		t.Fatalf("expected failed image to stay queued, got %+v", images)
	}
	testsupport.AssertExists(t, images[0].LocalRef)
}

func TestUploadRequiresSelection(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "add", env.sources[0])
	_, _, err := runCLI(t, env, "upload")
	if err == nil || !strings.Contains(err.Error(), "select a job code and file type") {
		t.Fatalf("expected selection error, got %v", err)
	}
	if env.backend.Calls(mockremote.EndpointAllocate) != 0 {
		t.Fatal("expected no allocation without a selection")
	}
}

func TestJobCodesSearchAndOfflineFallback(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "jobcodes", "--search", "park", "--json")
	var listing struct {
		Codes []queue.JobCode `json:"codes"`
		Stale bool            `json:"stale"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Codes) != 1 || listing.Codes[0].Code != "GNP-100" || listing.Stale {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	env.backend.Inject(mockremote.EndpointJobCodes, mockremote.FailAlways(mockremote.Fault{Status: http.StatusBadGateway}))
	out, stderr, err := runCLI(t, env, "jobcodes", "--refresh")
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	requireContains(t, stderr, "backend unreachable")
	requireContains(t, out, "Alpha Yard")
	requireContains(t, out, "Gnome Park")
}

func TestQueueRemoveByPrefixAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, append([]string{"add"}, env.sources...)...)
	images := queuedImages(t, env)

	out := mustRunCLI(t, env, "queue", "remove", images[0].ID[:8])
	requireContains(t, out, "Removed "+images[0].ID[:8])
	testsupport.AssertMissing(t, images[0].LocalRef)

	if _, _, err := runCLI(t, env, "queue", "remove", "zzzzzzzz"); err == nil {
		t.Fatal("expected error for unknown id")
	}

	out = mustRunCLI(t, env, "queue", "clear", "--delete-files")
	requireContains(t, out, "Cleared 2 image(s)")
	requireContains(t, out, "Deleted 2 local copy(ies)")
	testsupport.AssertMissing(t, images[1].LocalRef)
	testsupport.AssertMissing(t, images[2].LocalRef)
}

func TestQueueWritesRefuseDuringUploadRun(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "select", "job", "GNP-100")
	mustRunCLI(t, env, "select", "type", "job-progress")
	mustRunCLI(t, env, append([]string{"add"}, env.sources[:2]...)...)
	images := queuedImages(t, env)

	release, err := upload.NewRunLock(env.cfg.RunLockPath()).Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	for _, args := range [][]string{
		{"queue", "clear", "--delete-files"},
		{"queue", "remove", images[0].ID},
		{"add", env.sources[2]},
		{"select", "clear"},
		{"upload"},
	} {
		if _, _, err := runCLI(t, env, args...); !errors.Is(err, upload.ErrRunInProgress) {
			t.Fatalf("%s: expected run in progress, got %v", strings.Join(args, " "), err)
		}
	}
	if got := len(queuedImages(t, env)); got != 2 {
		t.Fatalf("expected queue untouched while locked, got %d rows", got)
	}
	for _, image := range images {
		testsupport.AssertExists(t, image.LocalRef)
	}
	if env.backend.Calls(mockremote.EndpointAllocate) != 0 {
		t.Fatal("expected no allocation while locked")
	}

	release()
	out := mustRunCLI(t, env, "queue", "clear", "--delete-files")
	requireContains(t, out, "Cleared 2 image(s)")
}

func TestQueueHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "add", env.sources[0])

	out := mustRunCLI(t, env, "queue", "health", "--json")
	var health queue.DatabaseHealth
	if err := json.Unmarshal([]byte(out), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !health.DatabaseExists || !health.IntegrityCheck || health.QueuedImages != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "sample.toml")

	out := mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	testsupport.AssertExists(t, target)

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	out = mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestStatusReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "status")
	requireContains(t, out, "Queue database:")
	requireContains(t, out, "reachable, 2 job codes")

	env.backend.Inject(mockremote.EndpointJobCodes, mockremote.FailAlways(mockremote.Fault{Status: http.StatusBadGateway}))
	out, _, err := runCLI(t, env, "status")
	if err == nil {
		t.Fatal("expected failing status when backend is down")
	}
	requireContains(t, out, "HTTP 502")
}
