package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

const maxResponseBytes = 64 * 1024

// HTTPBackend posts the payload as JSON to the predictor's predict endpoint.
type HTTPBackend struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend for endpoint. A zero timeout means the
// exchange only ends when the predictor answers or ctx is done.
func NewHTTPBackend(endpoint string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name implements Backend.
func (b *HTTPBackend) Name() string { return "http" }

// Exchange implements Backend.
func (b *HTTPBackend) Exchange(ctx context.Context, payload esi.Payload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &ExchangeError{StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ExchangeError{Err: fmt.Errorf("read response: %w", err)}
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &ContractError{Message: UnexpectedResponse}
	}
	return &out, nil
}
