package analytics

import (
    "context"
    "fmt"

    "Aegis/internal/stats"
)

// HTTPCouncilMember is one remote voter. Each member maps to a model route
// on the council service; a vote is a single float in [-1, 1].
type HTTPCouncilMember struct {
    base *HTTPServiceBase
    name string
}

func NewHTTPCouncilMember(base *HTTPServiceBase, name string) *HTTPCouncilMember {
    return &HTTPCouncilMember{base: base, name: name}
}

func (m *HTTPCouncilMember) Name() string { return m.name }

type councilRequest struct {
    Window []float64 `json:"window"`
}

type councilResponse struct {
    Signal float64 `json:"signal"`
}

// CalculateSignal returns the member's vote over the price window. Errors
// propagate so the orchestrator can count the member as abstaining.
func (m *HTTPCouncilMember) CalculateSignal(ctx context.Context, window []float64) (float64, error) {
    var resp councilResponse
    path := fmt.Sprintf("/council/%s", m.name)
    if err := m.base.PostJSON(ctx, path, councilRequest{Window: window}, &resp); err != nil {
        return 0, err
    }
    return stats.Clamp(resp.Signal, -1, 1), nil
}
