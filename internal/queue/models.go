package queue

import "time"

// Image is one picture waiting for upload.
type Image struct {
	ID        string
	LocalRef  string
	Position  int64
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Selection is the persisted classification choice. Either field may be empty.
type Selection struct {
	JobCode  string
	FileType string
}

// Complete reports whether both a job code and a file type are selected.
func (s Selection) Complete() bool {
	return s.JobCode != "" && s.FileType != ""
}

// JobCode is one entry of the cached job-code catalogue.
type JobCode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	QueuedImages     int
	CachedJobCodes   int
	Error            string
}
