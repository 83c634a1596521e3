package services_test

import (
	"errors"
	"strings"
	"testing"

	"jobmedia/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "remote", "upload blob", "post failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"remote", "upload blob", "post failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrAllocation, "allocator", "reserve", "", nil), "allocation"},
		{services.Wrap(services.ErrLocalIO, "uploader", "read", "", nil), "local_io"},
		{services.Wrap(services.ErrLogical, "remote", "metadata", "quota exceeded", nil), "logical"},
		{services.Wrap(services.ErrValidation, "scheduler", "prepare", "", nil), "validation"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAllocationWrappingLogicalKeepsAllocationKind(t *testing.T) {
	inner := services.Wrap(services.ErrLogical, "remote", "allocate", "job closed", nil)
	err := services.Wrap(services.ErrAllocation, "allocator", "reserve", "", inner)
	if got := services.Kind(err); got != "allocation" {
		t.Fatalf("expected allocation kind, got %q", got)
	}
	if !errors.Is(err, services.ErrLogical) {
		t.Fatal("expected inner logical marker to remain reachable")
	}
}
