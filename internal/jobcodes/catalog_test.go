package jobcodes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobmedia/internal/jobcodes"
	"jobmedia/internal/mockremote"
	"jobmedia/internal/queue"
	"jobmedia/internal/remote"
	"jobmedia/internal/services"
	"jobmedia/internal/testsupport"
)

type stubFetcher struct {
	codes []remote.JobCode
	err   error
	calls int
}

func (s *stubFetcher) JobCodes(context.Context) ([]remote.JobCode, error) {
	s.calls++
	return s.codes, s.err
}

func TestLoadSortsByNameAndCaches(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	fetcher := &stubFetcher{codes: []remote.JobCode{
		{Code: "Z-1", Name: "zeta park"},
		{Code: "A-9", Name: "Alpha Yard"},
		{Code: "M-3", Name: "Mill Road"},
	}}
	catalog := jobcodes.New(fetcher, store, nil)

	listing, err := catalog.Load(context.Background(), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if listing.Stale {
		t.Fatal("fresh listing should not be stale")
	}
	got := []string{listing.Codes[0].Code, listing.Codes[1].Code, listing.Codes[2].Code}
	if got[0] != "A-9" || got[1] != "M-3" || got[2] != "Z-1" {
		t.Fatalf("expected name order, got %v", got)
	}
	cached, fetchedAt, err := store.CachedJobCodes(context.Background())
	if err != nil || len(cached) != 3 || fetchedAt.IsZero() {
		t.Fatalf("expected cache to be written, got %v %v %v", cached, fetchedAt, err)
	}
}

func TestLoadServesFreshCacheWithoutFetching(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveJobCodes(context.Background(), []queue.JobCode{{Code: "A", Name: "A"}}, now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	fetcher := &stubFetcher{}
	catalog := jobcodes.New(fetcher, store, nil, jobcodes.WithClock(func() time.Time { return now }))

	listing, err := catalog.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected cache hit, fetcher called %d times", fetcher.calls)
	}
	if len(listing.Codes) != 1 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestLoadFallsBackToStaleCache(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	seeded := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.SaveJobCodes(context.Background(), []queue.JobCode{{Code: "A", Name: "A"}}, seeded); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	backend := mockremote.New()
	backend.Inject(mockremote.EndpointJobCodes, mockremote.FailAlways(mockremote.Fault{Status: http.StatusBadGateway}))
	server := httptest.NewServer(backend.Handler())
	defer server.Close()
	client, err := remote.New(server.URL)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}

	listing, err := jobcodes.New(client, store, nil).Load(context.Background(), true)
	if err != nil {
		t.Fatalf("expected fallback without error, got %v", err)
	}
	if !listing.Stale || !listing.FetchedAt.Equal(seeded) || len(listing.Codes) != 1 {
		t.Fatalf("unexpected stale listing: %+v", listing)
	}
}

func TestLoadWithoutCacheReturnsFetchError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	fetchErr := services.Wrap(services.ErrTransient, "remote", "list job codes", "down", nil)
	listing, err := jobcodes.New(&stubFetcher{err: fetchErr}, store, nil).Load(context.Background(), false)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if listing.Codes == nil || len(listing.Codes) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", listing.Codes)
	}
}

func TestLoadWithoutFetcherOrCacheIsConfigurationError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := jobcodes.New(nil, store, nil).Load(context.Background(), true)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error with empty cache, got %v", err)
	}
}

func TestSearchAndFind(t *testing.T) {
	codes := []queue.JobCode{
		{Code: "GNP-100", Name: "Gnome Park"},
		{Code: "ABC-1", Name: "Alpha Yard"},
	}
	if got := jobcodes.Search(codes, "park"); len(got) != 1 || got[0].Code != "GNP-100" {
		t.Fatalf("unexpected search by name: %v", got)
	}
	if got := jobcodes.Search(codes, "abc"); len(got) != 1 || got[0].Code != "ABC-1" {
		t.Fatalf("unexpected search by code: %v", got)
	}
	if got := jobcodes.Search(codes, " "); len(got) != 2 {
		t.Fatalf("expected empty query to return all, got %v", got)
	}
	if code, ok := jobcodes.Find(codes, "gnp-100"); !ok || code.Name != "Gnome Park" {
		t.Fatalf("Find = %+v, %v", code, ok)
	}
}
