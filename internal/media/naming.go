package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRootFolder is the first segment of every container path.
const DefaultRootFolder = "ALL CUSTOMERS"

const defaultExtension = "jpg"

// Classification is the job code and file type shared by every image in a batch.
type Classification struct {
	JobCode  string
	FileType FileType
}

// Validate reports a missing job code or an unknown file type.
func (c Classification) Validate() error {
	if strings.TrimSpace(c.JobCode) == "" {
		return errors.New("job code is required")
	}
	if !c.FileType.Valid() {
		return fmt.Errorf("file type %q is not valid", c.FileType)
	}
	return nil
}

// Extension returns the extension of localRef without its dot, keeping its
// case, defaulting to jpg.
func Extension(localRef string) string {
	ext := strings.TrimPrefix(filepath.Ext(localRef), ".")
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// ObjectName builds the remote file name for the image at index.
// GNP-100 / job-progress / 7 / jpg -> GNP-100-JP-7.jpg; freight types drop the prefix.
func ObjectName(c Classification, index int, ext string) string {
	if ext == "" {
		ext = defaultExtension
	}
	name := strconv.Itoa(index) + "." + ext
	if c.FileType.IsFreight() {
		return name
	}
	return c.JobCode + "-" + c.FileType.Abbrev() + "-" + name
}

// ContainerPath joins root, job code, file type, and object name with pipes.
func ContainerPath(root string, c Classification, objectName string) string {
	if root == "" {
		root = DefaultRootFolder
	}
	return strings.Join([]string{root, c.JobCode, string(c.FileType), objectName}, "|")
}

// Summary returns the object name without its extension.
func Summary(objectName string) string {
	idx := strings.LastIndex(objectName, ".")
	if idx < 0 {
		return objectName
	}
	return objectName[:idx]
}

// StoragePath derives the blob path recorded in metadata from the blob store's
// reported path: empty segments and the leading container segment are dropped.
// It falls back to objectName when nothing remains.
func StoragePath(reported, objectName string) string {
	var segments []string
	for _, part := range strings.Split(reported, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	if len(segments) <= 1 {
		return objectName
	}
	return strings.Join(segments[1:], "/")
}

// EstimateSize approximates the decoded size of a base64 payload.
func EstimateSize(encodedLen int) int64 {
	return int64(encodedLen) * 3 / 4
}
