package media

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FileType classifies what a batch of photographs documents.
type FileType string

const (
	JobSurvey       FileType = "job-survey"
	JobProgress     FileType = "job-progress"
	JobCompletion   FileType = "job-completion"
	FreightReceived FileType = "freight-received"
	FreightShipped  FileType = "freight-shipped"
)

var fileTypeAbbrevs = map[FileType]string{
	JobSurvey:       "JS",
	JobProgress:     "JP",
	JobCompletion:   "JC",
	FreightReceived: "FR",
	FreightShipped:  "FS",
}

var titleCaser = cases.Title(language.English)

// AllFileTypes lists the file types in display order.
func AllFileTypes() []FileType {
	return []FileType{JobSurvey, JobProgress, JobCompletion, FreightReceived, FreightShipped}
}

// ParseFileType accepts an id ("job-progress"), a label ("Job Progress"), or an
// abbreviation ("JP"), case-insensitively.
func ParseFileType(value string) (FileType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)
	for _, ft := range AllFileTypes() {
		if string(ft) == normalized || strings.EqualFold(ft.Abbrev(), normalized) {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown file type %q (expected one of %s)", value, strings.Join(fileTypeIDs(), ", "))
}

// Valid reports whether ft is one of the known file types.
func (ft FileType) Valid() bool {
	_, ok := fileTypeAbbrevs[ft]
	return ok
}

// Abbrev returns the two-letter code used in object names.
func (ft FileType) Abbrev() string {
	return fileTypeAbbrevs[ft]
}

// Label returns the human-readable name, e.g. "Job Progress".
func (ft FileType) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(ft), "-", " "))
}

// IsFreight reports whether objects of this type are named by index alone.
func (ft FileType) IsFreight() bool {
	return ft == FreightReceived || ft == FreightShipped
}

func (ft FileType) String() string {
	return string(ft)
}

func fileTypeIDs() []string {
	ids := make([]string, 0, len(fileTypeAbbrevs))
	for _, ft := range AllFileTypes() {
		ids = append(ids, string(ft))
	}
	return ids
}
