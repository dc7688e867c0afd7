// Package search provides the gateway to the external full-text search engine.
//
// The engine speaks a Meilisearch-compatible HTTP API. Writes are accepted
// asynchronously: they return a TaskHandle immediately and their outcome is only
// observable by polling the task, which Await does.
//
// Every failure is translated into one of the errors declared in errors.go.
// Transport failures and 5xx responses are retried with exponential backoff; all
// other failures are returned to the caller on the first attempt.
package search

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
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultTimeout is the default timeout for a single HTTP request
	DefaultTimeout = 10 * time.Second

	// DefaultAwaitTimeout is how long Await waits for a task when no timeout is given
	DefaultAwaitTimeout = 60 * time.Second

	// DefaultPollInterval is the delay between two task status polls
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultMaxTries is the number of attempts made for a retryable request
	DefaultMaxTries = 3

	// MinEngineVersion is the oldest engine release supporting delete by filter
	MinEngineVersion = "1.2.0"

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for engine requests
	UserAgent = "notebox-indexer/1.0"
)

// Client executes requests against the search engine.
type Client interface {
	// AddDocuments upserts documents by primary key.
	AddDocuments(ctx context.Context, index string, documents any) (TaskHandle, error)
	// DeleteDocument deletes a single document. Deleting a missing id is not an error.
	DeleteDocument(ctx context.Context, index, id string) (TaskHandle, error)
	// DeleteDocumentsByFilter deletes every document matching filter.
	DeleteDocumentsByFilter(ctx context.Context, index, filter string) (TaskHandle, error)
	// FetchDocuments browses documents matching a filter, without ranking.
	FetchDocuments(ctx context.Context, index string, req FetchRequest) (*FetchResponse, error)
	// Search runs a full-text query.
	Search(ctx context.Context, index string, req SearchRequest) (*SearchResponse, error)
	// FacetSearch runs a facet-only query.
	FacetSearch(ctx context.Context, index string, req FacetSearchRequest) (*FacetSearchResponse, error)
	// GetTask returns the current state of an asynchronous task.
	GetTask(ctx context.Context, taskUID int64) (*Task, error)
	// Await blocks until the task is terminal. It returns true when the task
	// succeeded, false when it failed or was canceled, and ErrTimeout when the
	// timeout elapsed first. A zero timeout means DefaultAwaitTimeout.
	Await(ctx context.Context, task TaskHandle, timeout time.Duration) (bool, error)
	// EnsureIndex creates the index when missing and applies settings.
	EnsureIndex(ctx context.Context, index, primaryKey string, settings IndexSettings) error
	// Health checks that the engine is available.
	Health(ctx context.Context) error
	// Version returns the engine release, such as "1.10.2".
	Version(ctx context.Context) (string, error)
}

// Option configures the default client
type Option func(*defaultClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *defaultClient) {
		c.http = httpClient
	}
}

// WithAPIKey sets the key sent as a bearer token
func WithAPIKey(apiKey string) Option {
	return func(c *defaultClient) {
		c.apiKey = apiKey
	}
}

// WithMaxTries sets the number of attempts for retryable requests
func WithMaxTries(tries uint) Option {
	return func(c *defaultClient) {
		if tries > 0 {
			c.maxTries = tries
		}
	}
}

// WithPollInterval sets the delay between task status polls
func WithPollInterval(interval time.Duration) Option {
	return func(c *defaultClient) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithInitialBackOff sets the first retry delay
func WithInitialBackOff(interval time.Duration) Option {
	return func(c *defaultClient) {
		if interval > 0 {
			c.initialBackOff = interval
		}
	}
}

// WithTracer sets the OpenTelemetry tracer used for engine calls
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultClient) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

type defaultClient struct {
	endpoint       string
	apiKey         string
	http           *http.Client
	maxTries       uint
	pollInterval   time.Duration
	initialBackOff time.Duration
	tracer         trace.Tracer
}

// NewClient creates a client for the engine at endpoint (scheme, host and port).
func NewClient(endpoint string, opts ...Option) (Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("search engine endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search engine endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("search engine endpoint must use http or https, got %q", parsed.Scheme)
	}

	c := &defaultClient{
		endpoint:       strings.TrimSuffix(endpoint, "/"),
		http:           &http.Client{Timeout: DefaultTimeout},
		maxTries:       DefaultMaxTries,
		pollInterval:   DefaultPollInterval,
		initialBackOff: 200 * time.Millisecond,
		tracer:         noop.NewTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *defaultClient) AddDocuments(ctx context.Context, index string, documents any) (TaskHandle, error) {
	var task TaskHandle
	path := indexPath(index, "documents") + "?primaryKey=id"
	err := c.call(ctx, "search.AddDocuments", index, http.MethodPost, path, documents, &task)
	return task, err
}

func (c *defaultClient) DeleteDocument(ctx context.Context, index, id string) (TaskHandle, error) {
	var task TaskHandle
	path := indexPath(index, "documents", id)
	err := c.call(ctx, "search.DeleteDocument", index, http.MethodDelete, path, nil, &task)
	return task, err
}

func (c *defaultClient) DeleteDocumentsByFilter(ctx context.Context, index, filter string) (TaskHandle, error) {
	var task TaskHandle
	body := map[string]string{"filter": filter}
	err := c.call(ctx, "search.DeleteDocumentsByFilter", index, http.MethodPost,
		indexPath(index, "documents", "delete"), body, &task)
	return task, err
}

func (c *defaultClient) FetchDocuments(ctx context.Context, index string, req FetchRequest) (*FetchResponse, error) {
	var resp FetchResponse
	if err := c.call(ctx, "search.FetchDocuments", index, http.MethodPost,
		indexPath(index, "documents", "fetch"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *defaultClient) Search(ctx context.Context, index string, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.call(ctx, "search.Search", index, http.MethodPost, indexPath(index, "search"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *defaultClient) FacetSearch(
	ctx context.Context, index string, req FacetSearchRequest,
) (*FacetSearchResponse, error) {
	var resp FacetSearchResponse
	if err := c.call(ctx, "search.FacetSearch", index, http.MethodPost,
		indexPath(index, "facet-search"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *defaultClient) GetTask(ctx context.Context, taskUID int64) (*Task, error) {
	var task Task
	path := "/tasks/" + strconv.FormatInt(taskUID, 10)
	if err := c.call(ctx, "search.GetTask", "", http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *defaultClient) Await(ctx context.Context, task TaskHandle, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	ctx, span := c.startSpan(ctx, "search.Await", trace.WithAttributes(AttrTaskUID.Int64(task.TaskUID)))
	defer span.End()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		current, err := c.GetTask(waitCtx, task.TaskUID)
		switch {
		case err == nil:
			if current.Status.IsTerminal() {
				if current.Status != TaskStatusSucceeded {
					attrs := []any{"task_uid", task.TaskUID, "index", current.IndexUID, "status", current.Status}
					if current.Error != nil {
						attrs = append(attrs, "error", current.Error.Message, "code", current.Error.Code)
					}
					slog.Warn("Search task did not succeed", attrs...)
				}
				return current.Status == TaskStatusSucceeded, nil
			}
		case ctx.Err() != nil:
			recordError(span, ctx.Err())
			return false, ctx.Err()
		case waitCtx.Err() != nil:
			err = fmt.Errorf("%w: task %d after %s", ErrTimeout, task.TaskUID, timeout)
			recordError(span, err)
			return false, err
		default:
			recordError(span, err)
			return false, err
		}

		select {
		case <-ctx.Done():
			recordError(span, ctx.Err())
			return false, ctx.Err()
		case <-waitCtx.Done():
			err := fmt.Errorf("%w: task %d after %s", ErrTimeout, task.TaskUID, timeout)
			recordError(span, err)
			return false, err
		case <-ticker.C:
		}
	}
}

func (c *defaultClient) Health(ctx context.Context) error {
	return c.call(ctx, "search.Health", "", http.MethodGet, "/health", nil, nil)
}

func (c *defaultClient) Version(ctx context.Context) (string, error) {
	var v struct {
		PkgVersion string `json:"pkgVersion"`
	}
	if err := c.call(ctx, "search.Version", "", http.MethodGet, "/version", nil, &v); err != nil {
		return "", err
	}
	return v.PkgVersion, nil
}

func (c *defaultClient) EnsureIndex(ctx context.Context, index, primaryKey string, settings IndexSettings) error {
	err := c.call(ctx, "search.GetIndex", index, http.MethodGet, indexPath(index), nil, nil)
	switch {
	case IsNotFound(err):
		slog.Info("Creating search index", "index", index, "primary_key", primaryKey)
		var task TaskHandle
		body := map[string]string{"uid": index, "primaryKey": primaryKey}
		if err := c.call(ctx, "search.CreateIndex", index, http.MethodPost, "/indexes", body, &task); err != nil {
			return fmt.Errorf("failed to create index %s: %w", index, err)
		}
		if err := c.awaitSucceeded(ctx, task); err != nil {
			return fmt.Errorf("failed to create index %s: %w", index, err)
		}
	case err != nil:
		return fmt.Errorf("failed to get index %s: %w", index, err)
	}

	var task TaskHandle
	if err := c.call(ctx, "search.UpdateSettings", index, http.MethodPatch,
		indexPath(index, "settings"), settings, &task); err != nil {
		return fmt.Errorf("failed to update settings of index %s: %w", index, err)
	}
	if err := c.awaitSucceeded(ctx, task); err != nil {
		return fmt.Errorf("failed to update settings of index %s: %w", index, err)
	}
	return nil
}

// awaitSucceeded waits for task and converts a failed task into an error.
func (c *defaultClient) awaitSucceeded(ctx context.Context, task TaskHandle) error {
	ok, err := c.Await(ctx, task, DefaultAwaitTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d did not succeed", task.TaskUID)
	}
	return nil
}

// call sends a request, retrying transport and server failures, and decodes
// the response into out when out is not nil.
func (c *defaultClient) call(ctx context.Context, spanName, index, method, path string, body, out any) error {
	ctx, span := c.startSpan(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrHTTPMethod.String(method)))
	defer span.End()
	if index != "" {
		span.SetAttributes(AttrIndexUID.String(index))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrSerialization, err)
			recordError(span, err)
			return err
		}
	}

	target := c.endpoint + path
	respBody, err := backoff.Retry(ctx,
		func() ([]byte, error) {
			data, err := c.roundTrip(ctx, method, target, payload)
			if err != nil && !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return data, err
		},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Debug("Retrying search engine request",
				"method", method,
				"path", path,
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		var engineErr *EngineError
		if errors.As(err, &engineErr) {
			span.SetAttributes(AttrHTTPStatus.Int(engineErr.StatusCode))
		}
		recordError(span, err)
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		err = fmt.Errorf("%w: %s %s: %v", ErrDeserialization, method, path, err)
		recordError(span, err)
		return err
	}
	return nil
}

func (c *defaultClient) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackOff
	b.MaxInterval = 5 * time.Second
	return b
}

// roundTrip performs a single HTTP exchange and classifies its failure.
func (c *defaultClient) roundTrip(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrSerialization, err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("%w: response size %d bytes exceeds maximum allowed size of %d bytes",
			ErrDeserialization, resp.ContentLength, MaxResponseSize)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransport, err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeds maximum allowed size of %d bytes",
			ErrDeserialization, MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewEngineError(resp.StatusCode, method, target, data)
	}
	return data, nil
}

// indexPath builds /indexes/{uid}[/segment...] with escaped segments.
func indexPath(index string, segments ...string) string {
	var b strings.Builder
	b.WriteString("/indexes/")
	b.WriteString(url.PathEscape(index))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
