package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"jobmedia/internal/queue"
	"jobmedia/internal/testsupport"
)

func TestAddListPreservesImportOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	added := testsupport.MustEnqueue(t, store, "/tmp/a.jpg", "/tmp/b.jpg", "/tmp/c.png")

	images, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	for i, image := range images {
		if image.ID != added[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, added[i].ID, image.ID)
		}
		if i > 0 && image.Position <= images[i-1].Position {
			t.Fatalf("expected ascending positions, got %d after %d", image.Position, images[i-1].Position)
		}
	}
	if images[2].LocalRef != "/tmp/c.png" {
		t.Fatalf("unexpected local ref: %q", images[2].LocalRef)
	}
	if images[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to round-trip")
	}
}

func TestAddRequiresLocalRef(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.Add(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank local ref")
	}
}

func TestRemoveAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	added := testsupport.MustEnqueue(t, store, "/tmp/a.jpg", "/tmp/b.jpg")

	removed, err := store.Remove(ctx, added[0].ID)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v; want true, nil", removed, err)
	}
	removed, err = store.Remove(ctx, added[0].ID)
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v; want false, nil", removed, err)
	}

	got, err := store.Get(ctx, added[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected removed image to be gone, got %#v", got)
	}
	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count = %d, %v; want 1", count, err)
	}
}

func TestRecordFailureKeepsImageQueued(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	added := testsupport.MustEnqueue(t, store, "/tmp/a.jpg")

	for range 2 {
		if err := store.RecordFailure(ctx, added[0].ID, "quota exceeded"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	got, err := store.Get(ctx, added[0].ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %#v, %v", got, err)
	}
	if got.Attempts != 2 || got.LastError != "quota exceeded" {
		t.Fatalf("unexpected failure bookkeeping: %+v", got)
	}
	if err := store.RecordFailure(ctx, "missing", "x"); err == nil {
		t.Fatal("expected error for unknown image")
	}
}

func TestClearReturnsRemovedImages(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.MustEnqueue(t, store, "/tmp/a.jpg", "/tmp/b.jpg")

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cleared images, got %d", len(cleared))
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
}

func TestClearReturnsExactlyTheRowsItDeletes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	const total = 40
	done := make(chan error, 1)
	go func() {
		for i := range total {
			if _, err := store.Add(ctx, fmt.Sprintf("/tmp/img%02d.jpg", i)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	seen := make(map[string]bool)
	collect := func() {
		cleared, err := store.Clear(ctx)
		if err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		for i, image := range cleared {
			if seen[image.LocalRef] {
				t.Fatalf("image %s cleared twice", image.LocalRef)
			}
			if i > 0 && image.Position <= cleared[i-1].Position {
				t.Fatalf("expected cleared images in queue order, got %d after %d", image.Position, cleared[i-1].Position)
			}
			seen[image.LocalRef] = true
		}
	}
	for len(seen) < total {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			collect()
			if len(seen) != total {
				t.Fatalf("expected every added image returned by Clear, got %d of %d", len(seen), total)
			}
		default:
			collect()
		}
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
}

func TestSelectJobCodeClearsFileType(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.MustSelect(t, store, "GNP-100", "job-progress")
	sel, err := store.Selection(ctx)
	if err != nil {
		t.Fatalf("Selection failed: %v", err)
	}
	if !sel.Complete() || sel.JobCode != "GNP-100" || sel.FileType != "job-progress" {
		t.Fatalf("unexpected selection: %+v", sel)
	}

	if err := store.SelectJobCode(ctx, "GNP-200"); err != nil {
		t.Fatalf("SelectJobCode failed: %v", err)
	}
	sel, err = store.Selection(ctx)
	if err != nil {
		t.Fatalf("Selection failed: %v", err)
	}
	if sel.JobCode != "GNP-200" || sel.FileType != "" {
		t.Fatalf("expected file type to be cleared, got %+v", sel)
	}

	if err := store.ClearSelection(ctx); err != nil {
		t.Fatalf("ClearSelection failed: %v", err)
	}
	sel, _ = store.Selection(ctx)
	if sel != (queue.Selection{}) {
		t.Fatalf("expected empty selection, got %+v", sel)
	}
}

func TestSelectionSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.MustSelect(t, store, "GNP-100", "job-survey")
	testsupport.MustEnqueue(t, store, "/tmp/a.jpg")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	sel, err := reopened.Selection(context.Background())
	if err != nil {
		t.Fatalf("Selection failed: %v", err)
	}
	if sel.JobCode != "GNP-100" || sel.FileType != "job-survey" {
		t.Fatalf("unexpected selection after reopen: %+v", sel)
	}
	count, _ := reopened.Count(context.Background())
	if count != 1 {
		t.Fatalf("expected queued image to survive reopen, got %d", count)
	}
}

func TestJobCodeCacheRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	codes, fetchedAt, err := store.CachedJobCodes(ctx)
	if err != nil {
		t.Fatalf("CachedJobCodes failed: %v", err)
	}
	if len(codes) != 0 || !fetchedAt.IsZero() {
		t.Fatalf("expected empty cache, got %v at %v", codes, fetchedAt)
	}

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	want := []queue.JobCode{{Code: "B-2", Name: "Alpha"}, {Code: "A-1", Name: "Beta"}}
	if err := store.SaveJobCodes(ctx, want, now); err != nil {
		t.Fatalf("SaveJobCodes failed: %v", err)
	}
	codes, fetchedAt, err = store.CachedJobCodes(ctx)
	if err != nil {
		t.Fatalf("CachedJobCodes failed: %v", err)
	}
	if len(codes) != 2 || codes[0] != want[0] || codes[1] != want[1] {
		t.Fatalf("expected saved order, got %v", codes)
	}
	if !fetchedAt.Equal(now) {
		t.Fatalf("unexpected fetched_at: %v", fetchedAt)
	}

	if err := store.SaveJobCodes(ctx, want[:1], now.Add(time.Hour)); err != nil {
		t.Fatalf("SaveJobCodes replace failed: %v", err)
	}
	codes, _, _ = store.CachedJobCodes(ctx)
	if len(codes) != 1 {
		t.Fatalf("expected cache replacement, got %v", codes)
	}
}

func TestCheckHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "/tmp/a.jpg")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.SchemaVersion != 1 || health.QueuedImages != 1 {
		t.Fatalf("unexpected counts: %+v", health)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := queue.Open(cfg); !errors.Is(err, queue.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
