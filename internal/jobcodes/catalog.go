// Package jobcodes loads the ERP job-code catalogue with an offline fallback.
//
// Fresh catalogues are sorted by name and written to the local cache. When the
// backend cannot be reached the last cached catalogue is served and flagged
// stale so callers can say how old it is.
package jobcodes

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"jobmedia/internal/logging"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
)

// DefaultMaxAge is how long a cached catalogue is served without refetching.
const DefaultMaxAge = 12 * time.Hour

// Fetcher retrieves the live catalogue.
type Fetcher interface {
	JobCodes(ctx context.Context) ([]remote.JobCode, error)
}

// Cache persists the last fetched catalogue.
type Cache interface {
	SaveJobCodes(ctx context.Context, codes []queue.JobCode, fetchedAt time.Time) error
	CachedJobCodes(ctx context.Context) ([]queue.JobCode, time.Time, error)
}

// Listing is a catalogue snapshot.
type Listing struct {
	Codes     []queue.JobCode `json:"codes"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

// Catalog combines the live fetcher with the cache.
type Catalog struct {
	fetcher Fetcher
	cache   Cache
	logger  *slog.Logger
	maxAge  time.Duration
	now     func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxAge overrides DefaultMaxAge. Zero always refetches.
func WithMaxAge(d time.Duration) Option {
	return func(c *Catalog) { c.maxAge = d }
}

// WithClock overrides time.Now (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Catalog. fetcher may be nil when no backend is configured;
// Load then serves the cache only.
func New(fetcher Fetcher, cache Cache, logger *slog.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		fetcher: fetcher,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "jobcodes"),
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the catalogue. Unless refresh is set, a cache younger than the
// max age is served directly. A failed fetch falls back to the cache with
// Stale set; with no cache it returns an empty listing and the fetch error.
func (c *Catalog) Load(ctx context.Context, refresh bool) (Listing, error) {
	cached, fetchedAt, err := c.cache.CachedJobCodes(ctx)
	if err != nil {
		return Listing{}, err
	}
	if !refresh && len(cached) > 0 && c.maxAge > 0 && c.now().Sub(fetchedAt) < c.maxAge {
		return Listing{Codes: cached, FetchedAt: fetchedAt}, nil
	}

	fetchErr := errNoBackend
	if c.fetcher != nil {
		var live []remote.JobCode
		live, fetchErr = c.fetcher.JobCodes(ctx)
		if fetchErr == nil {
			codes := sortByName(live)
			now := c.now().UTC()
			if err := c.cache.SaveJobCodes(ctx, codes, now); err != nil {
				logging.WarnWithContext(c.logger, "job code cache write failed", "jobcodes_cache_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "next offline start will show an older catalogue"),
				)
			}
			c.logger.Info("job codes refreshed", logging.Int("count", len(codes)))
			return Listing{Codes: codes, FetchedAt: now}, nil
		}
	}

	if len(cached) == 0 {
		return Listing{Codes: []queue.JobCode{}}, fetchErr
	}
	logging.WarnWithContext(c.logger, "serving cached job codes", "jobcodes_stale",
		logging.Error(fetchErr),
		logging.String("fetched_at", fetchedAt.Format(time.RFC3339)),
		logging.String(logging.FieldErrorHint, "check connectivity to the backend"),
		logging.String(logging.FieldImpact, "recently added job codes may be missing"),
	)
	return Listing{Codes: cached, FetchedAt: fetchedAt, Stale: true}, nil
}

// Search filters codes whose name or code contains query, case-insensitively.
// An empty query returns codes unchanged.
func Search(codes []queue.JobCode, query string) []queue.JobCode {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return codes
	}
	var out []queue.JobCode
	for _, code := range codes {
		if strings.Contains(strings.ToLower(code.Name), query) || strings.Contains(strings.ToLower(code.Code), query) {
			out = append(out, code)
		}
	}
	return out
}

// Find returns the entry whose code equals value, case-insensitively.
func Find(codes []queue.JobCode, value string) (queue.JobCode, bool) {
	for _, code := range codes {
		if strings.EqualFold(code.Code, strings.TrimSpace(value)) {
			return code, true
		}
	}
	return queue.JobCode{}, false
}

func sortByName(live []remote.JobCode) []queue.JobCode {
	codes := make([]queue.JobCode, 0, len(live))
	for _, jc := range live {
		codes = append(codes, queue.JobCode{Code: jc.Code, Name: jc.Name})
	}
	sort.SliceStable(codes, func(i, j int) bool {
		return strings.ToLower(codes[i].Name) < strings.ToLower(codes[j].Name)
	})
	return codes
}
