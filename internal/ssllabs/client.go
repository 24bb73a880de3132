package ssllabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public analyze endpoint.
const DefaultBaseURL = "https://api.ssllabs.com/api/v2/analyze"

const maxResponseBytes = 4 << 20

// Client calls the remote assessment service. It exposes exactly two logical
// operations: a cache lookup by host and a submit-or-attach by host. The
// remote service owns start-vs-attach semantics; repeated SubmitOrAttach
// calls for the same host report the status of the running assessment.
//
// Neither operation returns an error. Transport failures are converted into a
// synthetic ERROR-shaped result so the poll loop always receives a well-formed
// snapshot.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewClient builds a client against baseURL (DefaultBaseURL when empty) with
// a bounded per-call timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FromCache asks the service for a previously completed assessment of host.
func (c *Client) FromCache(ctx context.Context, host string) (*AssessmentResult, Class) {
	params := url.Values{}
	params.Set("fromCache", "on")
	params.Set("all", "done")
	return c.analyze(ctx, host, params)
}

// SubmitOrAttach starts a new assessment for host or attaches to one already
// running, returning its current snapshot.
func (c *Client) SubmitOrAttach(ctx context.Context, host string) (*AssessmentResult, Class) {
	params := url.Values{}
	params.Set("all", "done")
	params.Set("publish", "off")
	params.Set("ignoreMismatch", "on")
	return c.analyze(ctx, host, params)
}

func (c *Client) analyze(ctx context.Context, host string, params url.Values) (*AssessmentResult, Class) {
	params.Set("host", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return c.transportFailure(host, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportFailure(host, fmt.Errorf("analyze call: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.transportFailure(host, fmt.Errorf("read response: %w", err))
	}

	// Quota violations arrive as error payloads with non-200 status codes,
	// so the body is parsed regardless of the status code. Only an
	// undecodable body counts as a transport failure.
	var result AssessmentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return c.transportFailure(host, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err))
	}
	if result.Host == "" {
		result.Host = host
	}
	result.Raw = body

	return &result, Classify(&result)
}

func (c *Client) transportFailure(host string, err error) (*AssessmentResult, Class) {
	c.logger.Warnw("assessment call failed", "host", host, "error", err)
	return &AssessmentResult{
		Host:   host,
		Status: StatusError,
		Errors: []APIError{{Message: err.Error()}},
	}, ClassTransportFailure
}
