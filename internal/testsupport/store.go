package testsupport

import (
	"context"
	"testing"

	"jobmedia/internal/config"
	"jobmedia/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustEnqueue adds every path to the store and returns the queued images in order.
func MustEnqueue(t testing.TB, store *queue.Store, paths ...string) []*queue.Image {
	t.Helper()

	images := make([]*queue.Image, 0, len(paths))
	for _, path := range paths {
		image, err := store.Add(context.Background(), path)
		if err != nil {
			t.Fatalf("enqueue %s: %v", path, err)
		}
		images = append(images, image)
	}
	return images
}

// MustSelect stores a complete classification selection.
func MustSelect(t testing.TB, store *queue.Store, jobCode, fileType string) {
	t.Helper()

	ctx := context.Background()
	if err := store.SelectJobCode(ctx, jobCode); err != nil {
		t.Fatalf("select job code: %v", err)
	}
	if err := store.SelectFileType(ctx, fileType); err != nil {
		t.Fatalf("select file type: %v", err)
	}
}
