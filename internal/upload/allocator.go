package upload

import (
	"context"
	"log/slog"

	"jobmedia/internal/logging"
	"jobmedia/internal/media"
	"jobmedia/internal/remote"
	"jobmedia/internal/retry"
	"jobmedia/internal/services"
)

// Allocator reserves sequence indices for a batch.
type Allocator struct {
	backend Backend
	retrier *retry.Executor
	policy  retry.Policy
	logger  *slog.Logger
}

// NewAllocator constructs an Allocator.
func NewAllocator(backend Backend, retrier *retry.Executor, policy retry.Policy, logger *slog.Logger) *Allocator {
	return &Allocator{
		backend: backend,
		retrier: retrier,
		policy:  policy,
		logger:  logging.NewComponentLogger(logger, "allocator"),
	}
}

// Allocate reserves count consecutive indices and returns the first. Any
// failure after retries is tagged services.ErrAllocation.
func (a *Allocator) Allocate(ctx context.Context, class media.Classification, count int) (int, error) {
	if count <= 0 {
		return 0, services.Wrap(services.ErrAllocation, "allocator", "allocate", "count must be positive", services.ErrValidation)
	}
	if err := class.Validate(); err != nil {
		return 0, services.Wrap(services.ErrAllocation, "allocator", "allocate", err.Error(), services.ErrValidation)
	}
	ctx = services.WithStep(ctx, "allocate")
	req := remote.AllocateRequest{
		JobCode:   class.JobCode,
		Type:      string(class.FileType),
		NumImages: count,
	}
	base, err := retry.Value(ctx, a.retrier, a.policy, "allocate indices", func(ctx context.Context) (int, error) {
		return a.backend.AllocateIndices(ctx, req)
	})
	if err != nil {
		return 0, services.Wrap(services.ErrAllocation, "allocator", "allocate", "no items were attempted", err)
	}
	logging.WithContext(ctx, a.logger).Info("sequence indices reserved",
		logging.Int("base_index", base),
		logging.Int("count", count),
		logging.String("job_code", class.JobCode),
		logging.String("file_type", string(class.FileType)),
	)
	return base, nil
}
