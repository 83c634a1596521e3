package imagestore_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobmedia/internal/imagestore"
	"jobmedia/internal/testsupport"
)

func TestImportCopiesIntoLibrary(t *testing.T) {
	base := t.TempDir()
	lib, err := imagestore.Open(filepath.Join(base, "images"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	src := filepath.Join(base, "picked", "IMG_0001.PNG")
	testsupport.WriteFile(t, src, 128)

	managed, err := lib.Import(src, imagestore.SourceCamera)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if filepath.Dir(managed) != lib.Dir() {
		t.Fatalf("expected managed file inside %s, got %s", lib.Dir(), managed)
	}
	name := filepath.Base(managed)
	if !strings.HasPrefix(name, "camera_") || !strings.HasSuffix(name, ".PNG") {
		t.Fatalf("unexpected managed name %q", name)
	}
	want, _ := os.ReadFile(src)
	got, err := lib.Read(managed)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("managed copy differs from source")
	}
	testsupport.AssertExists(t, src)
}

func TestImportRejectsDirectoriesAndMissingFiles(t *testing.T) {
	base := t.TempDir()
	lib, err := imagestore.Open(filepath.Join(base, "images"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := lib.Import(base, imagestore.SourceLibrary); err == nil {
		t.Fatal("expected error importing a directory")
	}
	if _, err := lib.Import(filepath.Join(base, "missing.jpg"), imagestore.SourceLibrary); err == nil {
		t.Fatal("expected error importing a missing file")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	base := t.TempDir()
	lib, _ := imagestore.Open(base)
	path := filepath.Join(base, "x.jpg")
	testsupport.WriteFile(t, path, 4)

	if err := lib.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := lib.Delete(path); err != nil {
		t.Fatalf("second Delete should succeed, got %v", err)
	}
	exists, err := lib.Exists(path)
	if err != nil || exists {
		t.Fatalf("Exists = %v, %v; want false", exists, err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := imagestore.Open(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
