package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
)

const (
	userAgent       = "hospital-map/1.0 (+https://github.com/medlocator/hospital-map)"
	maxResponseSize = 16 << 20
	maxErrorBody    = 512
)

// doRequest executes req and returns the body of a 2xx response. Every failure is
// returned as a *providers.ProviderError.
func doRequest(client *http.Client, kind providers.ProviderKind, req *http.Request) ([]byte, error) {
	endpoint := req.URL.Host + req.URL.Path

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(kind, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(kind, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providers.ProviderError{
			Provider:   kind,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
	}
	return body, nil
}

func transportError(kind providers.ProviderKind, endpoint string, err error) *providers.ProviderError {
	pErr := &providers.ProviderError{Provider: kind, Endpoint: endpoint, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		pErr.Timeout = true
	}
	return pErr
}

func decodeError(kind providers.ProviderKind, endpoint string, err error) *providers.ProviderError {
	return &providers.ProviderError{
		Provider: kind,
		Endpoint: endpoint,
		Err:      fmt.Errorf("failed to decode response: %w", err),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
