// Package analytics holds the HTTP adapters to the external model services:
// the quantile forecaster, the council voters and the reasoning engine.
package analytics

import (
    "context"
    "fmt"
    "time"

    svcmetrics "Aegis/internal/service/metrics"
    xhttp "Aegis/pkg/http"
)

// HTTPServiceBase provides a DRY foundation for analytics HTTP clients.
// It centralizes client construction and JSON POST request handling.
type HTTPServiceBase struct {
    baseURL string
    client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with the given timeout and base URL.
func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
    if timeout <= 0 {
        timeout = 3 * time.Second
    }
    svcmetrics.Register()
    return &HTTPServiceBase{
        baseURL: baseURL,
        client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
    }
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return fmt.Errorf("analytics http client not initialized")
    }
    start := time.Now()
    err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method: xhttp.MethodPost,
        URL:    b.baseURL + path,
        Headers: map[string]string{
            "Content-Type": "application/json",
        },
        Body: payload,
    }, dest)
    svcmetrics.AnalyticsLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
    if err != nil {
        svcmetrics.AnalyticsErrors.WithLabelValues(path).Inc()
        return fmt.Errorf("post %s: %w", path, err)
    }
    return nil
}

// PostJSONWithRetry posts JSON with up to `attempts` retries for transient errors.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
    if attempts <= 1 {
        return b.PostJSON(ctx, path, payload, dest)
    }
    var err error
    for i := 1; i <= attempts; i++ {
        err = b.PostJSON(ctx, path, payload, dest)
        if err == nil {
            return nil
        }
        // simple backoff
        select {
        case <-time.After(time.Duration(i) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}
