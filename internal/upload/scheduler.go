package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobmedia/internal/config"
	"jobmedia/internal/logging"
	"jobmedia/internal/media"
	"jobmedia/internal/queue"
	"jobmedia/internal/retry"
	"jobmedia/internal/services"
)

// DefaultGroupSize is the number of items uploaded concurrently.
const DefaultGroupSize = 5

// Scheduler drives a batch through allocation and grouped uploads.
type Scheduler struct {
	allocator  *Allocator
	uploader   *Uploader
	queue      Queue
	files      Files
	groupSize  int
	bestEffort bool
	lock       *RunLock
	onProgress func(Progress)
	logger     *slog.Logger
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithGroupSize sets how many items run concurrently.
func WithGroupSize(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.groupSize = n
		}
	}
}

// WithBestEffort keeps later groups running after a group reports failures.
func WithBestEffort(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.bestEffort = enabled }
}

// WithRunLock replaces the process-local run lock.
func WithRunLock(lock *RunLock) SchedulerOption {
	return func(s *Scheduler) {
		if lock != nil {
			s.lock = lock
		}
	}
}

// WithProgress registers a callback invoked with monotonically increasing
// progress. Calls are serialized.
func WithProgress(fn func(Progress)) SchedulerOption {
	return func(s *Scheduler) { s.onProgress = fn }
}

// NewScheduler wires a scheduler from its parts.
func NewScheduler(allocator *Allocator, uploader *Uploader, q Queue, files Files, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		allocator: allocator,
		uploader:  uploader,
		queue:     q,
		files:     files,
		groupSize: DefaultGroupSize,
		lock:      NewRunLock(""),
		logger:    logging.NewComponentLogger(logger, "scheduler"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// New builds the full pipeline from configuration. Options are applied after
// the configured ones.
func New(cfg *config.Config, backend Backend, q Queue, files Files, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	policy := retry.Policy{MaxAttempts: cfg.Upload.MaxAttempts, Delay: cfg.RetryDelay()}
	retrier := retry.New(logger)
	allocator := NewAllocator(backend, retrier, policy, logger)
	uploader := NewUploader(backend, files, retrier, UploaderOptions{
		Container:  cfg.Remote.Container,
		RootFolder: cfg.Remote.RootFolder,
		Policy:     policy,
	}, logger)
	base := []SchedulerOption{
		WithGroupSize(cfg.Upload.GroupSize),
		WithBestEffort(cfg.BestEffort()),
		WithRunLock(NewRunLock(cfg.RunLockPath())),
	}
	return NewScheduler(allocator, uploader, q, files, logger, append(base, opts...)...)
}

// Prepare snapshots the queue into a batch using the persisted selection.
// Queue rows whose local file has disappeared are dropped. It fails with
// ErrRunInProgress while a run holds the lock.
func (s *Scheduler) Prepare(ctx context.Context) (Batch, error) {
	release, err := s.lock.Acquire()
	if err != nil {
		return Batch{}, err
	}
	defer release()
	return s.prepare(ctx)
}

// PrepareAndRun prepares a batch and runs it under a single hold of the run
// lock, so no other writer can touch the queue in between.
func (s *Scheduler) PrepareAndRun(ctx context.Context) (Batch, Result, error) {
	release, err := s.lock.Acquire()
	if err != nil {
		return Batch{}, Result{}, err
	}
	defer release()
	batch, err := s.prepare(ctx)
	if err != nil {
		return Batch{}, Result{}, err
	}
	result, err := s.run(ctx, batch)
	return batch, result, err
}

func (s *Scheduler) prepare(ctx context.Context) (Batch, error) {
	selection, err := s.queue.Selection(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("load selection: %w", err)
	}
	if !selection.Complete() {
		return Batch{}, services.Wrap(services.ErrValidation, "scheduler", "prepare", "select a job code and file type before uploading", nil)
	}
	fileType, err := media.ParseFileType(selection.FileType)
	if err != nil {
		return Batch{}, services.Wrap(services.ErrValidation, "scheduler", "prepare", "stored file type is invalid", err)
	}
	class := media.Classification{JobCode: selection.JobCode, FileType: fileType}

	images, err := s.queue.List(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("list queue: %w", err)
	}
	logger := logging.WithContext(ctx, s.logger)
	kept := make([]*queue.Image, 0, len(images))
	for _, image := range images {
		exists, err := s.files.Exists(image.LocalRef)
		if err != nil {
			return Batch{}, services.Wrap(services.ErrLocalIO, "scheduler", "prepare", image.LocalRef, err)
		}
		if exists {
			kept = append(kept, image)
			continue
		}
		if _, err := s.queue.Remove(ctx, image.ID); err != nil {
			return Batch{}, fmt.Errorf("drop missing image %s: %w", image.ID, err)
		}
		logging.WarnWithContext(logger, "queued image missing locally; dropped from queue", "queue_reconciled",
			logging.String(logging.FieldItemID, image.ID),
			logging.String("local_ref", image.LocalRef),
			logging.String(logging.FieldErrorHint, "re-add the image if it still needs uploading"),
			logging.String(logging.FieldImpact, "image will not be uploaded"),
		)
	}
	if len(kept) == 0 {
		return Batch{}, services.Wrap(services.ErrValidation, "scheduler", "prepare", "upload queue is empty", nil)
	}
	return Batch{ID: uuid.NewString(), Images: kept, Classification: class}, nil
}

// Run allocates indices for the batch and uploads it in groups. The returned
// error joins every item failure; Result is valid even when err is non-nil.
func (s *Scheduler) Run(ctx context.Context, batch Batch) (Result, error) {
	release, err := s.lock.Acquire()
	if err != nil {
		return Result{BatchID: batch.ID, Status: StatusPartial, Total: len(batch.Images)}, err
	}
	defer release()
	return s.run(ctx, batch)
}

func (s *Scheduler) run(ctx context.Context, batch Batch) (Result, error) {
	ctx = services.WithBatchID(ctx, batch.ID)
	logger := logging.WithContext(ctx, s.logger)
	if len(batch.Images) == 0 {
		return Result{BatchID: batch.ID, Status: StatusComplete}, services.Wrap(services.ErrValidation, "scheduler", "run", "batch has no images", nil)
	}
	if err := batch.Classification.Validate(); err != nil {
		return newResult(batch, 0), services.Wrap(services.ErrValidation, "scheduler", "run", "invalid classification", err)
	}

	total := len(batch.Images)
	base, err := s.allocator.Allocate(ctx, batch.Classification, total)
	if err != nil {
		result := newResult(batch, 0)
		result.Skipped = total
		logging.ErrorWithContext(logger, "index allocation failed", "allocation_failed",
			logging.Error(err),
			logging.Int("total", total),
			logging.String(logging.FieldErrorHint, "check connectivity and retry; the queue is unchanged"),
		)
		return result, err
	}
	batch.BaseIndex = base
	logger.Info("upload run started",
		logging.Int("total", total),
		logging.Int("base_index", base),
		logging.Int("group_size", s.groupSize),
		logging.Bool("best_effort", s.bestEffort),
	)

	var (
		mu        sync.Mutex
		completed int
		failures  []ItemFailure
		errs      []error
	)
	s.emit(Progress{Completed: 0, Total: total})

	// Bookkeeping must land even after cancellation.
	bookCtx := context.WithoutCancel(ctx)
	finish := func(image *queue.Image, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if outcome.Uploaded() {
			if _, err := s.queue.Remove(bookCtx, image.ID); err != nil {
				logging.WarnWithContext(logger, "uploaded image could not be removed from queue", "queue_remove_failed",
					logging.String(logging.FieldItemID, image.ID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the next run drops it once the local file is gone"),
				)
			}
			completed++
			s.emit(Progress{Completed: completed, Total: total})
			return
		}
		reason := outcome.Reason()
		if err := s.queue.RecordFailure(bookCtx, image.ID, reason); err != nil {
			logging.WarnWithContext(logger, "failed to record item failure", "queue_update_failed",
				logging.String(logging.FieldItemID, image.ID),
				logging.Error(err),
			)
		}
		failures = append(failures, ItemFailure{
			ItemID:   image.ID,
			LocalRef: image.LocalRef,
			Index:    outcome.Index,
			Step:     outcome.Step,
			Kind:     services.Kind(outcome.Err),
			Reason:   reason,
		})
		errs = append(errs, outcome.Err)
	}

	attempted := 0
	for start := 0; start < total; start += s.groupSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+s.groupSize, total)
		mu.Lock()
		failedBefore := len(failures)
		mu.Unlock()

		var group errgroup.Group
		group.SetLimit(end - start)
		for i := start; i < end; i++ {
			image := batch.Images[i]
			index := batch.IndexFor(i)
			group.Go(func() error {
				finish(image, s.uploader.Upload(ctx, image, batch.Classification, index))
				return nil
			})
		}
		_ = group.Wait()
		attempted = end

		mu.Lock()
		groupFailed := len(failures) > failedBefore
		mu.Unlock()
		if groupFailed && !s.bestEffort && end < total {
			logging.WarnWithContext(logger, "stopping run after failed group", "run_stopped",
				logging.Int("remaining", total-end),
				logging.String(logging.FieldErrorHint, "rerun the upload or enable best_effort mode"),
				logging.String(logging.FieldImpact, "remaining images stay queued"),
			)
			break
		}
	}

	result := newResult(batch, completed)
	result.Failures = failures
	result.Skipped = total - attempted
	if ctxErr := ctx.Err(); ctxErr != nil && result.Skipped > 0 {
		errs = append(errs, fmt.Errorf("upload run interrupted: %w", ctxErr))
	}
	logger.Info("upload run finished",
		logging.String("status", string(result.Status)),
		logging.Int("completed", result.Completed),
		logging.Int("failed", len(result.Failures)),
		logging.Int("skipped", result.Skipped),
		logging.Int("total", total),
	)
	return result, errors.Join(errs...)
}

func (s *Scheduler) emit(p Progress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}
