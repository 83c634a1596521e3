package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobmedia/internal/mockremote"
	"jobmedia/internal/remote"
	"jobmedia/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBackend(t *testing.T) {
	backend := mockremote.New(mockremote.WithJobCodes(remote.JobCode{Code: "A", Name: "Alpha"}))
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	client, err := remote.New(srv.URL)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	result := CheckBackend(context.Background(), srv.URL, client)
	if !result.Passed || !strings.Contains(result.Detail, "1 job codes") {
		t.Fatalf("expected pass, got %+v", result)
	}

	backend.Inject(mockremote.EndpointJobCodes, mockremote.FailAlways(mockremote.Fault{Status: http.StatusServiceUnavailable}))
	result = CheckBackend(context.Background(), srv.URL, client)
	if result.Passed || !strings.Contains(result.Detail, "HTTP 503") {
		t.Fatalf("expected HTTP 503 failure, got %+v", result)
	}
}

func TestCheckBackend_NilFetcher(t *testing.T) {
	if result := CheckBackend(context.Background(), "http://localhost", nil); result.Passed {
		t.Fatal("expected failure without a client")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Probes{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Remote.BaseURL = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, Probes{Queue: store})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results[:4] {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if last := results[4]; last.Passed || last.Name != "Backend" {
		t.Fatalf("expected backend failure without base url, got %+v", last)
	}
	if AllPassed(results) {
		t.Fatal("expected AllPassed to be false")
	}
}
