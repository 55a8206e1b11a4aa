// Package api exposes the ops surface: engine status, the decision audit
// trail and the kill switch.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"Aegis/internal/service/broker"
	"Aegis/internal/usecase"
	xhttp "Aegis/pkg/http"
	xlogger "Aegis/pkg/logger"
	"Aegis/pkg/util"
)

// OpsHandler registers the ops API routes on Echo.
type OpsHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.DecisionEngine
	decisions drepo.DecisionStore
	collector *usecase.MarketCollector
	account   *broker.PaperAccount
	env       string
}

func NewOpsHandler(logger *xlogger.Logger, engine *usecase.DecisionEngine, decisions drepo.DecisionStore, collector *usecase.MarketCollector, account *broker.PaperAccount, env string) *OpsHandler {
	return &OpsHandler{
		logger:    logger,
		engine:    engine,
		decisions: decisions,
		collector: collector,
		account:   account,
		env:       env,
	}
}

// RegisterRoutes implements pkg/http.Handler.
func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	g := e.Group("/api")
	g.GET("/status", h.status)
	g.GET("/decisions", h.listDecisions)
	g.POST("/killswitch", h.killSwitch)
	g.POST("/account", h.markAccount)
}

func (h *OpsHandler) health(c echo.Context) error {
	out := map[string]interface{}{
		"feed_connected": h.collector != nil && h.collector.IsConnected(),
	}
	if h.decisions != nil {
		if err := h.decisions.Health(c.Request().Context()); err != nil {
			out["store"] = "down"
			return c.JSON(http.StatusServiceUnavailable, out)
		}
		out["store"] = "ok"
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OpsHandler) status(c echo.Context) error {
	status, dd := h.engine.GovernorState()
	resp := models.StatusResponse{
		Environment:   h.env,
		TradingStatus: string(status),
		MaxDrawdown:   dd,
		KillSwitch:    h.engine.Killed(),
		CyclesRun:     h.engine.Cycles(),
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *OpsHandler) listDecisions(c echo.Context) error {
	req := new(models.DecisionsRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	if h.decisions == nil {
		return xhttp.ListResponse(c, []*models.RiskDecision{}, 0)
	}

	now := time.Now()
	from := util.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, now)

	rows, err := h.decisions.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("decision query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// markAccount marks the paper account to market. The next cycle governs
// against the updated NAV and held histories, which is what arms the
// drawdown breaker and the portfolio correlation gates.
func (h *OpsHandler) markAccount(c echo.Context) error {
	req := new(models.AccountUpdateRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if h.account == nil {
		return xhttp.BadRequestResponse(c, "no paper account wired")
	}

	h.account.MarkToMarket(req.NAV, req.BuyingPower)
	for symbol, history := range req.Held {
		h.account.SetHeldHistory(symbol, history)
	}
	h.logger.Info("paper account marked",
		xlogger.Any("nav", req.NAV),
		xlogger.Any("buying_power", req.BuyingPower),
		xlogger.Int("held", len(req.Held)))
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"nav":          req.NAV,
		"buying_power": req.BuyingPower,
	})
}

func (h *OpsHandler) killSwitch(c echo.Context) error {
	req := new(models.KillSwitchRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	if req.Engaged {
		reason := req.Reason
		if reason == "" {
			reason = "operator request"
		}
		h.engine.Halt(reason)
	} else {
		h.engine.Resume()
	}
	return xhttp.SuccessResponse(c, map[string]bool{"engaged": h.engine.Killed()})
}
