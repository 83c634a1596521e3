package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"jobmedia/internal/logging"
	"jobmedia/internal/media"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
	"jobmedia/internal/retry"
	"jobmedia/internal/services"
)

// Pipeline step names, used in logs and failure reports.
const (
	StepRead     = "read"
	StepBlob     = "blob"
	StepMetadata = "metadata"
	StepCleanup  = "cleanup"
)

// Outcome is the terminal state of one item. Err is nil exactly when the item
// was uploaded.
type Outcome struct {
	ItemID     string
	Index      int
	ObjectName string
	BlobPath   string
	Size       int64
	Step       string
	Err        error
}

// Uploaded reports whether blob and metadata were both confirmed and the local
// copy is gone.
func (o Outcome) Uploaded() bool {
	return o.Err == nil
}

// Reason returns a one-line failure reason, preferring the backend's message.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	var remoteErr *remote.RemoteError
	if errors.As(o.Err, &remoteErr) {
		return remoteErr.Reason()
	}
	return o.Err.Error()
}

// UploaderOptions carries the naming settings from config.
type UploaderOptions struct {
	Container  string
	RootFolder string
	Policy     retry.Policy
}

// Uploader moves one image end to end.
type Uploader struct {
	backend Backend
	files   Files
	retrier *retry.Executor
	opts    UploaderOptions
	logger  *slog.Logger
}

// NewUploader constructs an Uploader.
func NewUploader(backend Backend, files Files, retrier *retry.Executor, opts UploaderOptions, logger *slog.Logger) *Uploader {
	if opts.Container == "" {
		opts.Container = "app-uploads"
	}
	if opts.RootFolder == "" {
		opts.RootFolder = media.DefaultRootFolder
	}
	return &Uploader{
		backend: backend,
		files:   files,
		retrier: retrier,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "uploader"),
	}
}

// Upload stores the image under index. Remote steps are retried; local file
// access is not. The local copy is deleted only after metadata registration
// succeeds.
func (u *Uploader) Upload(ctx context.Context, image *queue.Image, class media.Classification, index int) Outcome {
	ctx = services.WithItemID(ctx, image.ID)
	ext := media.Extension(image.LocalRef)
	objectName := media.ObjectName(class, index, ext)
	outcome := Outcome{ItemID: image.ID, Index: index, ObjectName: objectName}

	readCtx := services.WithStep(ctx, StepRead)
	data, err := u.files.Read(image.LocalRef)
	if err != nil {
		return u.fail(readCtx, outcome, StepRead, services.Wrap(services.ErrLocalIO, "uploader", "read image", image.LocalRef, err))
	}
	payload := base64.StdEncoding.EncodeToString(data)
	outcome.Size = media.EstimateSize(len(payload))

	blobCtx := services.WithStep(ctx, StepBlob)
	blobName := media.ContainerPath(u.opts.RootFolder, class, objectName)
	stored, err := retry.Value(blobCtx, u.retrier, u.opts.Policy, "file upload", func(ctx context.Context) (remote.BlobResult, error) {
		return u.backend.UploadBlob(ctx, blobName, payload)
	})
	if err != nil {
		return u.fail(blobCtx, outcome, StepBlob, err)
	}
	if stored.FileSize > 0 {
		outcome.Size = stored.FileSize
	}
	outcome.BlobPath = media.StoragePath(stored.BlobPath, objectName)

	metaCtx := services.WithStep(ctx, StepMetadata)
	record := remote.MetadataRecord{
		JobCode:       class.JobCode,
		ContainerName: u.opts.Container,
		BlobPath:      outcome.BlobPath,
		Type:          string(class.FileType),
		FileExt:       ext,
		EmployeeID:    remote.UnassignedEmployee,
		Summary:       media.Summary(objectName),
		Size:          outcome.Size,
	}
	if err := u.retrier.Do(metaCtx, u.opts.Policy, "database post", func(ctx context.Context) error {
		return u.backend.RegisterMetadata(ctx, record)
	}); err != nil {
		// The blob is already stored and nothing links it; it is not cleaned up.
		logging.WarnWithContext(logging.WithContext(metaCtx, u.logger), "blob stored without metadata", "orphan_blob",
			logging.String("blob_path", outcome.BlobPath),
			logging.String("object_name", objectName),
			logging.String(logging.FieldErrorHint, "a later run uploads the image again under a new index"),
			logging.String(logging.FieldImpact, "orphaned blob left in storage"),
		)
		return u.fail(metaCtx, outcome, StepMetadata, err)
	}

	cleanupCtx := services.WithStep(ctx, StepCleanup)
	if err := u.files.Delete(image.LocalRef); err != nil {
		logging.WarnWithContext(logging.WithContext(cleanupCtx, u.logger), "uploaded image could not be deleted locally", "local_delete_failed",
			logging.String("local_ref", image.LocalRef),
			logging.String(logging.FieldErrorHint, "remove the file manually or run 'jobmedia queue remove'"),
			logging.String(logging.FieldImpact, "image stays queued and would be uploaded again"),
		)
		return u.fail(cleanupCtx, outcome, StepCleanup, services.Wrap(services.ErrLocalIO, "uploader", "delete image", image.LocalRef, err))
	}

	logging.WithContext(ctx, u.logger).Info("image uploaded",
		logging.String("object_name", objectName),
		logging.Int("index", index),
		logging.Int64("size", outcome.Size),
	)
	return outcome
}

func (u *Uploader) fail(ctx context.Context, outcome Outcome, step string, err error) Outcome {
	outcome.Step = step
	outcome.Err = fmt.Errorf("%s (index %d): %w", outcome.ObjectName, outcome.Index, err)
	logging.ErrorWithContext(logging.WithContext(ctx, u.logger), "image upload failed", "item_failed",
		logging.Error(err),
		logging.Int("index", outcome.Index),
		logging.String(logging.FieldErrorHint, "image stays queued for the next run"),
	)
	return outcome
}
