// Package oracle is the client for the LLM-backed decision service. The
// engine never embeds prompt text or model-specific logic; every
// decision point is a typed operation against a single /v1/decide
// endpoint with a fixed, serializable contract, which keeps the
// scheduler testable against a deterministic stub.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/tracing"
)

var (
	// ErrUnavailable means the oracle backend could not be reached or
	// returned a server error.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrMalformedOutput means the oracle responded but its output did
	// not match the operation contract.
	ErrMalformedOutput = errors.New("oracle returned malformed output")
)

const (
	OpSynthesizeQueries = "synthesize_queries"
	OpJudgeRelevance    = "judge_relevance"
	OpSelectNext        = "select_next"
	OpInferDependencies = "infer_dependencies"
	OpFormatResult      = "format_result"
)

// Client talks to the oracle service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type decideRequest struct {
	Operation string      `json:"operation"`
	Input     interface{} `json:"input"`
}

type decideResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
}

// decide posts one operation and decodes the typed output into out.
func (c *Client) decide(ctx context.Context, operation string, input, out interface{}) error {
	body, err := json.Marshal(decideRequest{Operation: operation, Input: input})
	if err != nil {
		return fmt.Errorf("marshal %s input: %w", operation, err)
	}
	ctx, span := tracing.StartSpan(ctx, "oracle.decide."+operation)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/decide", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectTraceparent(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s: HTTP %d", ErrUnavailable, operation, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s: HTTP %d: %s", ErrMalformedOutput, operation, resp.StatusCode, raw)
	}

	var dr decideResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, operation, err)
	}
	if dr.Error != "" {
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, operation, dr.Error)
	}
	if len(dr.Output) == 0 {
		return fmt.Errorf("%w: %s: empty output", ErrMalformedOutput, operation)
	}
	if err := json.Unmarshal(dr.Output, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, operation, err)
	}
	return nil
}
