package analytics

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "Aegis/internal/domain/models"
    scache "Aegis/internal/service/cache"
)

// QuantileForecaster calls the external forecast service for the decile
// distribution of a symbol's next close. Responses are cached briefly so the
// governor's repeated calls within a cycle window stay cheap.
type QuantileForecaster struct {
    base  *HTTPServiceBase
    cache scache.BytesCache
    ttl   time.Duration
}

func NewQuantileForecaster(base *HTTPServiceBase, cache scache.BytesCache, ttl time.Duration) *QuantileForecaster {
    return &QuantileForecaster{base: base, cache: cache, ttl: ttl}
}

type forecastRequest struct {
    Symbol  string    `json:"symbol"`
    History []float64 `json:"history"`
}

type forecastResponse struct {
    Quantiles []float64 `json:"quantiles"`
    Trend     string    `json:"trend"`
}

// Forecast returns the decile forecast for symbol. A malformed or truncated
// quantile vector is an error; the caller fails closed on it.
func (f *QuantileForecaster) Forecast(ctx context.Context, symbol string, history []float64) (models.QuantileForecast, error) {
    var out models.QuantileForecast

    key := "forecast:" + symbol
    if f.cache != nil {
        if b, ok, err := f.cache.GetBytes(key); err == nil && ok {
            if err := json.Unmarshal(b, &out); err == nil {
                return out, nil
            }
        }
    }

    var resp forecastResponse
    if err := f.base.PostJSONWithRetry(ctx, "/forecast", forecastRequest{Symbol: symbol, History: history}, &resp, 2); err != nil {
        return out, err
    }
    if len(resp.Quantiles) != len(out.Quantiles) {
        return out, fmt.Errorf("forecast %s: expected %d quantiles, got %d", symbol, len(out.Quantiles), len(resp.Quantiles))
    }
    copy(out.Quantiles[:], resp.Quantiles)
    out.Trend = resp.Trend

    if f.cache != nil {
        if b, err := json.Marshal(out); err == nil {
            _ = f.cache.SetBytes(key, b, f.ttl)
        }
    }
    return out, nil
}
