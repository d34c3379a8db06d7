package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"apimon/internal/features/monitor/models"

	"github.com/google/uuid"
)

// maxDrainBytes bounds how much of a response body is read before closing
const maxDrainBytes = 64 << 10

// Prober performs one health check against one endpoint
type Prober interface {
	Execute(ctx context.Context, endpoint models.Endpoint) models.CheckResult
}

// HTTPProber checks endpoints over HTTP(S)
type HTTPProber struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// NewHTTPProber creates a prober. A nil client gets a dedicated transport.
func NewHTTPProber(client *http.Client, userAgent string) *HTTPProber {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &HTTPProber{client: client, userAgent: userAgent, now: time.Now}
}

// Execute issues the configured request and classifies the outcome. It never
// returns an error; every failure is reported in the result.
func (p *HTTPProber) Execute(ctx context.Context, endpoint models.Endpoint) models.CheckResult {
	result := models.CheckResult{
		ID:         uuid.NewString(),
		EndpointID: endpoint.ID,
		Timestamp:  p.now(),
	}
	timeout := endpoint.Timeout()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, endpoint.Method, endpoint.URL, nil)
	if err != nil {
		result.Outcome = models.OutcomeError
		result.Error = fmt.Sprintf("invalid request: %v", err)
		return result
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		result.LatencyMs = time.Since(start).Milliseconds()
		if isTimeout(ctx, err) {
			result.Outcome = models.OutcomeTimeout
			result.Error = fmt.Sprintf("no response within %s", timeout)
			if result.LatencyMs > timeout.Milliseconds() {
				result.LatencyMs = timeout.Milliseconds()
			}
			return result
		}
		result.Outcome = models.OutcomeError
		result.Error = err.Error()
		return result
	}
	result.LatencyMs = time.Since(start).Milliseconds()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode == endpoint.ExpectedStatusCode {
		result.Outcome = models.OutcomeSuccess
		return result
	}
	result.Outcome = models.OutcomeError
	result.Error = fmt.Sprintf("expected status %d, got %d", endpoint.ExpectedStatusCode, resp.StatusCode)
	return result
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
