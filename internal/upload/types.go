package upload

import (
	"context"

	"jobmedia/internal/media"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
)

// Backend is the subset of the remote client the pipeline calls.
type Backend interface {
	AllocateIndices(ctx context.Context, req remote.AllocateRequest) (int, error)
	UploadBlob(ctx context.Context, blobName, base64Payload string) (remote.BlobResult, error)
	RegisterMetadata(ctx context.Context, record remote.MetadataRecord) error
}

// Files reads and deletes local image copies.
type Files interface {
	Read(path string) ([]byte, error)
	Delete(path string) error
	Exists(path string) (bool, error)
}

// Queue is the subset of the queue store the scheduler mutates.
type Queue interface {
	List(ctx context.Context) ([]*queue.Image, error)
	Remove(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id, reason string) error
	Selection(ctx context.Context) (queue.Selection, error)
}

// Batch is one upload run over a snapshot of the queue.
type Batch struct {
	ID             string
	Images         []*queue.Image
	Classification media.Classification
	// BaseIndex is filled in by Scheduler.Run once allocation succeeds.
	BaseIndex int
}

// IndexFor returns the sequence index of the i-th image (0-based).
func (b Batch) IndexFor(i int) int {
	return b.BaseIndex + i
}

// Progress reports how many items of a run have been uploaded.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Fraction returns Completed/Total, or 1 for an empty run.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// Status is the terminal state of a run.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
)

// ItemFailure records why one image stayed queued.
type ItemFailure struct {
	ItemID   string `json:"item_id"`
	LocalRef string `json:"local_ref"`
	Index    int    `json:"index"`
	Step     string `json:"step"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// Result summarizes a finished run.
type Result struct {
	BatchID   string        `json:"batch_id"`
	Status    Status        `json:"status"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	BaseIndex int           `json:"base_index"`
	Skipped   int           `json:"skipped"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

func newResult(batch Batch, completed int) Result {
	status := StatusPartial
	if completed == len(batch.Images) {
		status = StatusComplete
	}
	return Result{
		BatchID:   batch.ID,
		Status:    status,
		Completed: completed,
		Total:     len(batch.Images),
		BaseIndex: batch.BaseIndex,
	}
}
