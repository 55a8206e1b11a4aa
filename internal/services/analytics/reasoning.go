package analytics

import (
    "context"
    "fmt"

    "Aegis/internal/domain/models"
    "Aegis/internal/service/ratelimit"
)

// ReasoningClient calls the slow narrative reasoning service for the cycle's
// primary candidate. Calls are token-bucket limited; a limited call returns
// an error and the orchestrator keeps the cheap council verdict.
type ReasoningClient struct {
    base    *HTTPServiceBase
    limiter *ratelimit.Limiter
    rpm     float64
}

func NewReasoningClient(base *HTTPServiceBase, limiter *ratelimit.Limiter, rpm int) *ReasoningClient {
    if rpm <= 0 {
        rpm = 20
    }
    return &ReasoningClient{base: base, limiter: limiter, rpm: float64(rpm)}
}

type reasoningRequest struct {
    Symbol       string  `json:"symbol"`
    Price        float64 `json:"price"`
    Velocity     float64 `json:"velocity"`
    Acceleration float64 `json:"acceleration"`
    Alpha        float64 `json:"alpha"`
    Regime       string  `json:"regime"`
    Hurst        string  `json:"hurst"`
    Urgency      float64 `json:"urgency"`
    Reflexivity  float64 `json:"reflexivity"`
    Side         string  `json:"side"`
    Confidence   float64 `json:"confidence"`
}

type reasoningResponse struct {
    Side       string  `json:"side"`
    Confidence float64 `json:"confidence"`
    Reasoning  string  `json:"reasoning"`
}

// GenerateSignal produces the reasoned verdict for a candidate.
func (r *ReasoningClient) GenerateSignal(ctx context.Context, c *models.Candidate) (models.ReasonedSignal, error) {
    var out models.ReasonedSignal
    if r.limiter != nil && !r.limiter.Allow("reasoning", r.rpm, r.rpm/60.0) {
        return out, fmt.Errorf("reasoning rate limited")
    }

    req := reasoningRequest{
        Symbol:       c.Symbol,
        Price:        c.Price,
        Velocity:     c.Velocity,
        Acceleration: c.Acceleration,
        Alpha:        c.Alpha,
        Regime:       string(c.Regime),
        Hurst:        string(c.Hurst),
        Urgency:      c.Urgency,
        Reflexivity:  c.Reflexivity,
        Side:         string(c.Side),
        Confidence:   c.Confidence,
    }
    var resp reasoningResponse
    if err := r.base.PostJSON(ctx, "/reason", req, &resp); err != nil {
        return out, err
    }

    out.Confidence = resp.Confidence
    out.Reasoning = resp.Reasoning
    switch resp.Side {
    case string(models.SideBuy):
        out.Side = models.SideBuy
    case string(models.SideSell):
        out.Side = models.SideSell
    default:
        out.Side = models.SideFlat
    }
    return out, nil
}
