// Package analysis is the client of the remote analysis service.
package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finform/internal/core"
)

const (
	analyzePath = "/analyze"
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

var (
	// ErrTransport covers network errors, cancellation, timeouts and non-2xx
	// responses.
	ErrTransport = errors.New("analysis service unreachable")
	// ErrMalformedResult is returned for a 2xx response that is not a
	// complete analysis result.
	ErrMalformedResult = errors.New("malformed analysis result")
)

// StatusError reports a non-2xx response. It matches ErrTransport.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis service returned HTTP %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// MalformedError names the missing or invalid field of a result. It matches
// ErrMalformedResult.
type MalformedError struct {
	Field string
	Err   error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed analysis result: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed analysis result: missing %s", e.Field)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedResult }

type Config struct {
	BaseURL string
	// Timeout bounds each call. Zero means no timeout beyond the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts analysis requests. Identical requests in flight at the same
// time share a single upstream call. No caller's cancellation aborts that
// call; every caller may still give up on its own context.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	group    singleflight.Group
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("analysis: base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		endpoint: base + analyzePath,
		timeout:  cfg.Timeout,
		http:     hc,
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze submits req and returns the validated result.
func (c *Client) Analyze(ctx context.Context, req core.AnalysisRequest) (core.AnalysisResult, error) {
	body, err := json.Marshal(req.Payload())
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("encode analysis request: %w", err)
	}

	// The shared call outlives any single caller: each caller gives up on its
	// own ctx below, and the call itself is bounded by the client timeout.
	shared := context.WithoutCancel(ctx)
	sum := sha256.Sum256(body)
	ch := c.group.DoChan(hex.EncodeToString(sum[:]), func() (any, error) {
		return c.post(shared, body)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return core.AnalysisResult{}, res.Err
		}
		// Shared callers must not alias each other's slices.
		result := res.Val.(core.AnalysisResult)
		result.CategorizedExpenses = append([]core.CategorizedExpense(nil), result.CategorizedExpenses...)
		return result, nil
	case <-ctx.Done():
		return core.AnalysisResult{}, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}
}

func (c *Client) post(ctx context.Context, body []byte) (core.AnalysisResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return core.AnalysisResult{}, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}
	return decodeResult(data)
}
