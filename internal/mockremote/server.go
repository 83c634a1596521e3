package mockremote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobmedia/internal/logging"
	"jobmedia/internal/remote"
)

// ShutdownTimeout bounds graceful shutdown in Serve.
var ShutdownTimeout = 2 * time.Second

// Blob is one stored upload.
type Blob struct {
	Name      string
	Container string
	Data      []byte
}

// Server is the in-memory backend.
type Server struct {
	mu        sync.Mutex
	router    *chi.Mux
	logger    *slog.Logger
	nextIndex map[string]int
	blobs     map[string]Blob
	records   []remote.MetadataRecord
	jobCodes  []remote.JobCode
	rules     map[Endpoint][]Rule
	calls     map[Endpoint]int
	allocs    []remote.AllocateRequest
}

// Option configures a Server.
type Option func(*Server)

// WithLogger routes request logs through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logging.NewComponentLogger(logger, "mockremote")
	}
}

// WithJobCodes seeds the job-code catalogue.
func WithJobCodes(codes ...remote.JobCode) Option {
	return func(s *Server) {
		s.jobCodes = append([]remote.JobCode(nil), codes...)
	}
}

// New constructs a backend with routes mounted.
func New(opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logging.NewNop(),
		nextIndex: make(map[string]int),
		blobs:     make(map[string]Blob),
		rules:     make(map[Endpoint][]Rule),
		calls:     make(map[Endpoint]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/jobmedia/new", s.handleAllocate)
		r.Post("/jobmedia", s.handleMetadata)
		r.Get("/erp/jobcode", s.handleJobCodes)
	})
	s.router.Post("/storage/upload", s.handleUpload)
	return s
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Inject adds a fault rule for an endpoint. Rules are consulted in order; the
// first non-nil fault wins.
func (s *Server) Inject(endpoint Endpoint, rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[endpoint] = append(s.rules[endpoint], rule)
}

// ClearFaults removes every injected rule.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[Endpoint][]Rule)
}

// SetNextIndex sets the next index handed out for a job code and file type.
func (s *Server) SetNextIndex(jobCode, fileType string, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIndex[indexKey(jobCode, fileType)] = next
}

// Calls returns how many requests reached endpoint, failed ones included.
func (s *Server) Calls(endpoint Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Allocations returns every successful allocation request in arrival order.
func (s *Server) Allocations() []remote.AllocateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.AllocateRequest(nil), s.allocs...)
}

// Blobs returns stored blob names in sorted order.
func (s *Server) Blobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.blobs))
	for name := range s.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Blob returns a stored blob by name.
func (s *Server) Blob(name string) (Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[name]
	return blob, ok
}

// Records returns registered metadata rows in arrival order.
func (s *Server) Records() []remote.MetadataRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.MetadataRecord(nil), s.records...)
}

// Serve listens on addr until ctx is cancelled. The bound address is sent to
// ready once the listener is open.
func (s *Server) Serve(ctx context.Context, addr string, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.router, MaxHeaderBytes: 1 << 20, ReadHeaderTimeout: 10 * time.Second}
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mock server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req remote.AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.count(EndpointAllocate)
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if s.applyFault(w, Call{Endpoint: EndpointAllocate, Key: req.JobCode}) {
		return
	}
	if req.JobCode == "" || req.Type == "" || req.NumImages <= 0 {
		writeFailure(w, http.StatusOK, "JobCode, Type, and a positive NumImages are required")
		return
	}

	s.mu.Lock()
	key := indexKey(req.JobCode, req.Type)
	base, ok := s.nextIndex[key]
	if !ok {
		base = 1
	}
	s.nextIndex[key] = base + req.NumImages
	s.allocs = append(s.allocs, req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"Success": true,
		"Payload": []map[string]int{{"NewIndex": base}},
		"Errors":  []remote.Message{},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := query.Get("blobName")
	if s.applyFault(w, Call{Endpoint: EndpointUpload, Key: name}) {
		return
	}
	if name == "" {
		writeFailure(w, http.StatusOK, "blobName is required")
		return
	}
	if query.Get("base64") != "true" {
		writeFailure(w, http.StatusOK, "only base64 uploads are supported")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "read body")
		return
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		writeFailure(w, http.StatusOK, "body is not valid base64")
		return
	}
	container := query.Get("container")

	s.mu.Lock()
	s.blobs[name] = Blob{Name: name, Container: container, Data: data}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"Success":  true,
		"blobPath": "/" + container + "/" + strings.ReplaceAll(name, "|", "/"),
		"fileSize": len(data),
		"Errors":   []remote.Message{},
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var record remote.MetadataRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.count(EndpointMetadata)
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if s.applyFault(w, Call{Endpoint: EndpointMetadata, Key: record.BlobPath}) {
		return
	}
	if record.JobCode == "" || record.BlobPath == "" {
		writeFailure(w, http.StatusOK, "JobCode and BlobPath are required")
		return
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"Success": true, "Errors": []remote.Message{}})
}

func (s *Server) handleJobCodes(w http.ResponseWriter, _ *http.Request) {
	if s.applyFault(w, Call{Endpoint: EndpointJobCodes}) {
		return
	}
	s.mu.Lock()
	codes := append([]remote.JobCode{}, s.jobCodes...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"Payload": codes})
}

// applyFault counts the call and writes an injected failure when a rule fires.
func (s *Server) applyFault(w http.ResponseWriter, call Call) bool {
	s.mu.Lock()
	s.calls[call.Endpoint]++
	rules := append([]Rule(nil), s.rules[call.Endpoint]...)
	s.mu.Unlock()

	for _, rule := range rules {
		fault := rule(call)
		if fault == nil {
			continue
		}
		status := fault.Status
		if status == 0 {
			status = http.StatusOK
		}
		writeFailure(w, status, fault.Message)
		return true
	}
	return false
}

func (s *Server) count(endpoint Endpoint) {
	s.mu.Lock()
	s.calls[endpoint]++
	s.mu.Unlock()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldCorrelationID, middleware.GetReqID(r.Context())),
		)
	})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = "injected failure"
	}
	writeJSON(w, status, map[string]any{
		"Success": false,
		"Errors":  []remote.Message{{Message: message}},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func indexKey(jobCode, fileType string) string {
	return jobCode + "|" + fileType
}
