package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobmedia/internal/config"
	"jobmedia/internal/logging"
	"jobmedia/internal/services"
)

const (
	allocatePath = "/api/jobmedia/new"
	metadataPath = "/api/jobmedia"
	uploadPath   = "/storage/upload"
	jobCodePath  = "/api/erp/jobcode"

	maxErrorBody = 512
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the job-media backend.
type Client struct {
	baseURL         string
	container       string
	dynamicFilename string
	http            httpDoer
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client httpDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "remote")
	}
}

// WithContainer overrides the blob container and dynamic filename query values.
func WithContainer(container, dynamicFilename string) Option {
	return func(c *Client) {
		if container != "" {
			c.container = container
		}
		if dynamicFilename != "" {
			c.dynamicFilename = dynamicFilename
		}
	}
}

// New constructs a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "new client", "base url is empty", nil)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "new client", "invalid base url", err)
	}
	c := &Client{
		baseURL:         baseURL,
		container:       "app-uploads",
		dynamicFilename: "JobMedia",
		http:            &http.Client{Timeout: 60 * time.Second},
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NewFromConfig builds a client from the [remote] config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.RequireBaseURL(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "new client", "", err)
	}
	return New(cfg.Remote.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithContainer(cfg.Remote.Container, cfg.Remote.DynamicFilename),
		WithLogger(logger),
	)
}

// Container returns the blob container name recorded in metadata.
func (c *Client) Container() string {
	return c.container
}

// AllocateIndices reserves req.NumImages indices and returns the first one.
func (c *Client) AllocateIndices(ctx context.Context, req AllocateRequest) (int, error) {
	const op = "allocate indices"
	body, err := json.Marshal(req)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "remote", op, "encode request", err)
	}
	env, status, err := call[Envelope[AllocatePayload]](ctx, c, op, http.MethodPost, c.baseURL+allocatePath, "application/json", body)
	if err != nil {
		return 0, err
	}
	if err := requireSuccess(op, status, env.Success, env.Errors); err != nil {
		return 0, err
	}
	if len(env.Payload) == 0 {
		return 0, services.Wrap(services.ErrLogical, "remote", op, "", &RemoteError{Op: op, Status: status, Messages: []string{"allocation payload is empty"}})
	}
	return env.Payload[0].NewIndex, nil
}

// UploadBlob stores a base64 payload under blobName (a pipe-delimited container path).
func (c *Client) UploadBlob(ctx context.Context, blobName, base64Payload string) (BlobResult, error) {
	const op = "upload blob"
	query := url.Values{}
	query.Set("dynamicfilename", c.dynamicFilename)
	query.Set("container", c.container)
	query.Set("blobName", blobName)
	query.Set("postLogs", "true")
	query.Set("base64", "true")
	endpoint := c.baseURL + uploadPath + "?" + query.Encode()

	resp, status, err := call[uploadResponse](ctx, c, op, http.MethodPost, endpoint, "application/base64", []byte(base64Payload))
	if err != nil {
		return BlobResult{}, err
	}
	if err := requireSuccess(op, status, resp.Success, resp.Errors); err != nil {
		return BlobResult{}, err
	}
	return BlobResult{BlobPath: resp.BlobPath, FileSize: resp.FileSize}, nil
}

// RegisterMetadata records an uploaded blob in the job-media table.
func (c *Client) RegisterMetadata(ctx context.Context, record MetadataRecord) error {
	const op = "register metadata"
	if record.EmployeeID == "" {
		record.EmployeeID = UnassignedEmployee
	}
	body, err := json.Marshal(record)
	if err != nil {
		return services.Wrap(services.ErrValidation, "remote", op, "encode request", err)
	}
	env, status, err := call[Envelope[json.RawMessage]](ctx, c, op, http.MethodPost, c.baseURL+metadataPath, "application/json", body)
	if err != nil {
		return err
	}
	return requireSuccess(op, status, env.Success, env.Errors)
}

// JobCodes fetches the ERP job-code catalogue. This endpoint carries no
// Success flag; any 2xx response with a decodable body is accepted.
func (c *Client) JobCodes(ctx context.Context) ([]JobCode, error) {
	const op = "list job codes"
	env, _, err := call[Envelope[[]JobCode]](ctx, c, op, http.MethodGet, c.baseURL+jobCodePath, "", nil)
	if err != nil {
		return nil, err
	}
	return env.Payload, nil
}

type uploadResponse struct {
	Success  *bool     `json:"Success"`
	BlobPath string    `json:"blobPath"`
	FileSize int64     `json:"fileSize"`
	Errors   []Message `json:"Errors"`
}

// call performs one HTTP exchange and decodes the JSON body into T.
func call[T any](ctx context.Context, c *Client, op, method, endpoint, contentType string, body []byte) (T, int, error) {
	var out T
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := c.newRequest(ctx, method, endpoint, contentType, body)
	if err != nil {
		return out, 0, services.Wrap(services.ErrConfiguration, "remote", op, "build request", err)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return out, 0, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return out, 0, services.Wrap(services.ErrTransient, "remote", op, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, resp.StatusCode, services.Wrap(services.ErrTransient, "remote", op, "read response", err)
	}
	logging.WithContext(ctx, c.logger).Debug("remote call finished",
		logging.String("op", op),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("response_bytes", len(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, resp.StatusCode, services.Wrap(services.ErrTransient, "remote", op, "", &StatusError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		})
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, resp.StatusCode, services.Wrap(services.ErrTransient, "remote", op, "decode response", err)
	}
	return out, resp.StatusCode, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func requireSuccess(op string, status int, success *bool, messages []Message) error {
	if success != nil && *success {
		return nil
	}
	remoteErr := &RemoteError{Op: op, Status: status}
	for _, m := range messages {
		remoteErr.Messages = append(remoteErr.Messages, m.Message)
	}
	return services.Wrap(services.ErrLogical, "remote", op, "", remoteErr)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint, contentType string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
	return req, nil
}
