package commit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/csvimport/internal/core"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 4 << 20

// HTTPCommitter posts each batch as JSON to a remote import endpoint.
//
// The endpoint may contain "{entity}", which is replaced with the entity key.
// The body is {"rows": [...], "contextParams": {...}} and the backend answers
// with {"success": n, "failed": n, "errors": [{"row": n, "error": "..."}]},
// where row is the 1-based position within rows.
type HTTPCommitter struct {
	endpoint string
	client   *http.Client
	apiKey   string
}

// HTTPOption configures an HTTPCommitter.
type HTTPOption func(*HTTPCommitter)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPCommitter) { h.client = c }
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(h *HTTPCommitter) { h.apiKey = key }
}

// NewHTTPCommitter creates a committer for endpoint.
func NewHTTPCommitter(endpoint string, opts ...HTTPOption) (*HTTPCommitter, error) {
	u, err := url.Parse(strings.ReplaceAll(endpoint, "{entity}", "x"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid commit endpoint %q", endpoint)
	}

	h := &HTTPCommitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// CommitBatch implements core.Committer. Non-2xx statuses and undecodable
// bodies are returned as errors; the caller wraps them in a CommitError.
func (h *HTTPCommitter) CommitBatch(ctx context.Context, req core.CommitRequest) (core.CommitResponse, error) {
	var resp core.CommitResponse

	body, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("encode batch: %w", err)
	}

	target := strings.ReplaceAll(h.endpoint, "{entity}", url.PathEscape(req.Entity))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return resp, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.BatchID != "" {
		httpReq.Header.Set("X-Import-Batch", req.BatchID)
	}
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, fmt.Errorf("backend returned status %d: %s", httpResp.StatusCode, snippet(payload))
	}

	if err := json.Unmarshal(payload, &resp); err != nil {
		return core.CommitResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
