package api

import (
	"errors"
	"net/http"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/strategy"
	"FlowTrader/internal/usecase"
	xhttp "FlowTrader/pkg/http"
	xlogger "FlowTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxTradesLimit = 50

// MarketsHandler serves live session snapshots and on-demand backtests.
// Either dependency may be nil, in which case its routes answer 404.
type MarketsHandler struct {
	logger     *xlogger.Logger
	board      *usecase.Board
	backtester *usecase.Backtester
}

func NewMarketsHandler(logger *xlogger.Logger, board *usecase.Board, backtester *usecase.Backtester) *MarketsHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MarketsHandler{logger: logger, board: board, backtester: backtester}
}

func (h *MarketsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/markets", h.List)
	g.GET("/markets/:code", h.Get)
	g.GET("/markets/:code/trades", h.Trades)
	g.POST("/backtest", h.Backtest)
}

func (h *MarketsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *MarketsHandler) List(c echo.Context) error {
	if h.board == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("live trading is not running"))
	}
	rows := h.board.List()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketsHandler) Get(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// Trades returns the most recent closed trades of one market, newest last.
// since filters on exit time.
func (h *MarketsHandler) Trades(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	limit := xhttp.QueryInt(c, "limit", maxTradesLimit)
	if limit <= 0 || limit > maxTradesLimit {
		limit = maxTradesLimit
	}
	rows := snap.RecentTrades
	if since := xhttp.QueryTime(c, "since", time.Time{}); !since.IsZero() {
		rows = make([]models.ClosedTrade, 0, len(snap.RecentTrades))
		for _, t := range snap.RecentTrades {
			if !t.ExitTime.Before(since) {
				rows = append(rows, t)
			}
		}
	}
	rows = rows[max(0, len(rows)-limit):]
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketsHandler) snapshot(c echo.Context) (models.SessionSnapshot, error) {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return models.SessionSnapshot{}, xhttp.BadRequestErrorf("market code is required")
	}
	if h.board == nil {
		return models.SessionSnapshot{}, xhttp.NotFoundErrorf("live trading is not running")
	}
	snap, ok := h.board.Get(req.Code)
	if !ok {
		return models.SessionSnapshot{}, xhttp.NotFoundErrorf("market %s is not traded", req.Code).WithParam("code", req.Code)
	}
	return snap, nil
}

func (h *MarketsHandler) Backtest(c echo.Context) error {
	if h.backtester == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("backtesting is not available"))
	}
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	params, err := strategy.DecodeParams(req.Params)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%v", err).WithError(err))
	}
	var to time.Time
	if req.To != "" {
		// already validated as RFC3339
		to, _ = time.Parse(time.RFC3339, req.To)
	}

	res, err := h.backtester.Run(c.Request().Context(), usecase.BacktestParams{
		Market:         req.Market,
		Unit:           drepo.NormalizeUnit(req.Unit),
		To:             to,
		Count:          req.Count,
		Warmup:         req.Warmup,
		Strategy:       strategy.Kind(req.Strategy),
		Params:         params,
		InitialCapital: req.InitialCapital,
		FeePct:         req.FeePct,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, h.backtestError(req.Market, err))
	}
	return xhttp.DataResponse(c, http.StatusOK, res)
}

func (h *MarketsHandler) backtestError(market string, err error) error {
	var fe *usecase.FetchError
	switch {
	case errors.As(err, &fe):
		h.logger.Warn("backtest fetch failed", xlogger.String("market", market), xlogger.Error(err))
		return xhttp.BadGatewayErrorf("candle source failed for %s", market).WithError(err)
	case errors.Is(err, usecase.ErrNoCandles):
		return xhttp.NotFoundErrorf("no candles for %s", market).WithError(err)
	case errors.Is(err, strategy.ErrUnknownKind):
		return xhttp.BadRequestErrorf("%v", err).WithError(err)
	default:
		h.logger.Error("backtest failed", xlogger.String("market", market), xlogger.Error(err))
		return xhttp.InternalErrorf("backtest failed").WithError(err)
	}
}
