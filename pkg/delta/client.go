package delta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/metrics"
	"github.com/telefonbog/telefonbog/pkg/models"
)

const (
	// DefaultBaseURL is the Delta object API used when none is configured.
	DefaultBaseURL = "https://delta-cert.kmd.dk/api/object"

	// DefaultTimeout is the maximum time to wait for a graph-query response.
	DefaultTimeout = 30 * time.Second

	graphQueryPath = "graph-query"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Searcher runs graph queries against the directory.
type Searcher interface {
	Search(ctx context.Context, query *GraphQueryRequest, caller *models.Caller) ([]models.PersonRecord, bool, error)
}

// Client sends graph queries to Delta. Authentication is a property of the
// supplied http.Client (see NewHTTPClient).
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ Searcher = (*Client)(nil)

// NewClient creates a Delta client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger.Named("delta"),
	}
}

// Search POSTs query and normalizes the instances of the first result.
//
// The boolean is false when Delta answered but matched nothing. A missing,
// empty or unparseable answer is an *apperrors.UpstreamError instead.
// A nil query yields no result without contacting Delta.
func (c *Client) Search(ctx context.Context, query *GraphQueryRequest, caller *models.Caller) ([]models.PersonRecord, bool, error) {
	if caller == nil {
		return nil, false, apperrors.ErrUnauthorized
	}
	if query == nil {
		return nil, false, nil
	}

	endpoint, err := buildURL(c.baseURL, graphQueryPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build URL: %w", err)
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode graph query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	results, err := c.do(req)
	if err != nil {
		return nil, false, err
	}

	if len(results) == 0 || len(results[0].Instances) == 0 {
		c.logger.Debug("Delta returned no instances", zap.String("username", caller.Username))
		return nil, false, nil
	}

	return NormalizeAll(results[0].Instances), true, nil
}

// do executes req and decodes graphQueryResult from the response.
func (c *Client) do(req *http.Request) ([]QueryResult, error) {
	method, endpoint := req.Method, req.URL.String()
	upstream := func(status int, msg string, cause error) error {
		c.logger.Error("Delta request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Int("status", status),
			zap.String("reason", msg),
			zap.Error(cause))
		return &apperrors.UpstreamError{
			Method:     method,
			URL:        endpoint,
			StatusCode: status,
			Message:    msg,
			Underlying: cause,
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveDeltaRequest("error", time.Since(start))
		return nil, upstream(0, "request failed", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveDeltaRequest(fmt.Sprintf("%dxx", resp.StatusCode/100), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, upstream(resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug("Delta error body", zap.String("body", string(body)))
		return nil, upstream(resp.StatusCode, "unexpected status", nil)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil, upstream(resp.StatusCode, "no response from Delta", nil)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, upstream(resp.StatusCode, "malformed response", err)
	}
	if len(envelope) == 0 {
		return nil, upstream(resp.StatusCode, "no response from Delta", nil)
	}

	raw, ok := envelope["graphQueryResult"]
	if !ok {
		return nil, upstream(resp.StatusCode, "response has no graphQueryResult", nil)
	}

	var results []QueryResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, upstream(resp.StatusCode, "malformed graphQueryResult", err)
	}
	// A JSON null decodes to a nil slice; only an explicit list counts.
	if results == nil {
		return nil, upstream(resp.StatusCode, "malformed graphQueryResult", nil)
	}

	c.logger.Info("Delta request successful",
		zap.String("method", method),
		zap.String("url", endpoint))

	return results, nil
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)

	return u.String(), nil
}
