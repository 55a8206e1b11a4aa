package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"Aegis/internal/service/broker"
	xlogger "Aegis/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestMarkAccountUpdatesPaperAccount(t *testing.T) {
	acct := broker.NewPaperAccount(100000, false)
	h := NewOpsHandler(testLogger(t), nil, nil, nil, acct, "test")

	body := `{"nav": 97000, "buying_power": 15.5, "held": {"ETH": [10, 11, 12]}}`
	rec := postJSON(t, h.markAccount, "/api/account", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	state, err := acct.Account(context.Background())
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if state.NAV != 97000 || state.BuyingPower != 15.5 {
		t.Fatalf("mark not applied: %+v", state)
	}
	if len(state.HeldHistories["ETH"]) != 3 {
		t.Fatalf("held history not applied: %+v", state.HeldHistories)
	}
	if state.StartingCapital != 100000 {
		t.Fatalf("starting capital must not move on mark: %+v", state)
	}
}

func TestMarkAccountRemovesEmptiedPosition(t *testing.T) {
	acct := broker.NewPaperAccount(100000, false)
	acct.SetHeldHistory("ETH", []float64{10, 11, 12})
	h := NewOpsHandler(testLogger(t), nil, nil, nil, acct, "test")

	rec := postJSON(t, h.markAccount, "/api/account", `{"nav": 99000, "buying_power": 40000, "held": {"ETH": []}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	state, _ := acct.Account(context.Background())
	if _, ok := state.HeldHistories["ETH"]; ok {
		t.Fatalf("empty history must remove the position: %+v", state.HeldHistories)
	}
}

func TestMarkAccountRejectsNonPositiveNAV(t *testing.T) {
	acct := broker.NewPaperAccount(100000, false)
	h := NewOpsHandler(testLogger(t), nil, nil, nil, acct, "test")

	rec := postJSON(t, h.markAccount, "/api/account", `{"nav": 0, "buying_power": 100}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	state, _ := acct.Account(context.Background())
	if state.NAV != 100000 {
		t.Fatalf("rejected mark must not touch the account: %+v", state)
	}
}
