// Package imagestore manages the local copies of images waiting for upload.
//
// Picked files are copied into the images directory under generated names so
// the queue never depends on the original location staying put. The uploader
// reads from and deletes within this directory.
package imagestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"jobmedia/internal/media"
)

// Source describes where an image came from; it prefixes the managed file name.
type Source string

const (
	SourceLibrary Source = "library"
	SourceCamera  Source = "camera"
)

// Library is a directory of managed image copies.
type Library struct {
	dir string
}

// Open ensures dir exists and returns a Library rooted there.
func Open(dir string) (*Library, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("images directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images directory: %w", err)
	}
	return &Library{dir: dir}, nil
}

// Dir returns the managed directory.
func (l *Library) Dir() string {
	return l.dir
}

// Import copies src into the library and returns the managed path.
func (l *Library) Import(src string, source Source) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", src)
	}
	if source == "" {
		source = SourceLibrary
	}
	name := fmt.Sprintf("%s_%s.%s", source, uuid.NewString(), media.Extension(src))
	target := filepath.Join(l.dir, name)
	if err := copyFileContents(src, target); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

// Read returns the full contents of path.
func (l *Library) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// Delete removes path. A file that is already gone counts as deleted.
func (l *Library) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// Exists reports whether path is a regular file.
func (l *Library) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat image: %w", err)
	}
	return !info.IsDir(), nil
}

func copyFileContents(sourcePath, targetPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	dest, err := os.OpenFile(targetPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
