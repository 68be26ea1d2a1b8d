package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FlowTrader/internal/aggregator"
	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/usecase"

	"github.com/labstack/echo/v4"
)

type stubSource struct {
	err error
}

func (s stubSource) Candles(_ context.Context, market string, _ drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	if to.IsZero() {
		to = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	}
	out := make([]models.Candle, 0, count)
	for i := 1; i <= count; i++ {
		p := 100 + float64(i%5)
		out = append(out, models.Candle{Market: market, TimeUTC: to.Add(-time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p, AccTradeVolume: 1})
	}
	return out, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newEcho(board *usecase.Board, src drepo.CandleSource) *echo.Echo {
	var bt *usecase.Backtester
	if src != nil {
		bt = usecase.NewBacktester(usecase.NewHistoryFetcher(src, nil), aggregator.DefaultConfig(), nil, nil, nil, nil)
	}
	e := echo.New()
	NewMarketsHandler(nil, board, bt).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
	}
	return rec.Code, env
}

func TestMarketRoutes(t *testing.T) {
	board := usecase.NewBoard()
	board.Track("KRW-BTC", "KRW-ETH")
	trades := make([]models.ClosedTrade, 5)
	for i := range trades {
		exit := time.Date(2024, 5, 1, 0, i, 0, 0, time.UTC)
		trades[i] = models.ClosedTrade{Market: "KRW-BTC", ExitPrice: float64(i), ExitTime: exit}
	}
	board.Publish(models.SessionSnapshot{Market: "KRW-BTC", Price: 101, RecentTrades: trades})
	e := newEcho(board, nil)

	code, env := do(t, e, http.MethodGet, "/api/markets", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":2`) {
		t.Fatalf("list %d %s", code, env.Data)
	}

	code, env = do(t, e, http.MethodGet, "/api/markets/KRW-BTC", "")
	var snap models.SessionSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil || code != http.StatusOK || snap.Price != 101 {
		t.Fatalf("get %d %s", code, env.Data)
	}

	code, env = do(t, e, http.MethodGet, "/api/markets/KRW-BTC/trades?limit=2", "")
	var list struct {
		Rows  []models.ClosedTrade `json:"rows"`
		Total int                  `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil || code != http.StatusOK {
		t.Fatalf("trades %d %s", code, env.Data)
	}
	if list.Total != 2 || list.Rows[0].ExitPrice != 3 || list.Rows[1].ExitPrice != 4 {
		t.Fatalf("trades %+v", list)
	}

	code, env = do(t, e, http.MethodGet, "/api/markets/KRW-BTC/trades?since=2024-05-01T00:03:00Z", "")
	if err := json.Unmarshal(env.Data, &list); err != nil || code != http.StatusOK {
		t.Fatalf("trades since %d %s", code, env.Data)
	}
	if list.Total != 2 || list.Rows[0].ExitPrice != 3 {
		t.Fatalf("trades since %+v", list)
	}

	if code, _ := do(t, e, http.MethodGet, "/api/markets/KRW-XRP", ""); code != http.StatusNotFound {
		t.Fatalf("unknown market status %d", code)
	}
	if code, _ := do(t, e, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
}

func TestBacktestRoute(t *testing.T) {
	e := newEcho(nil, stubSource{})

	code, env := do(t, e, http.MethodPost, "/api/backtest", `{"market":"KRW-BTC","count":120,"warmup":10,"strategy":"breakout"}`)
	if code != http.StatusOK {
		t.Fatalf("backtest %d %s", code, env.Data)
	}
	var res usecase.BacktestResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Candles != 120 || res.Strategy != "breakout" || res.Ledger.InitialCapital != 1000000 {
		t.Fatalf("result %+v", res)
	}

	if code, _ := do(t, e, http.MethodPost, "/api/backtest", `{"market":"KRW-BTC","strategy":"martingale"}`); code != http.StatusBadRequest {
		t.Fatalf("invalid strategy status %d", code)
	}
	if code, _ := do(t, e, http.MethodPost, "/api/backtest", `{"market":"KRW-BTC","params":{"nope":1}}`); code != http.StatusBadRequest {
		t.Fatalf("invalid params status %d", code)
	}
	if code, _ := do(t, newEcho(nil, nil), http.MethodPost, "/api/backtest", `{"market":"KRW-BTC"}`); code != http.StatusNotFound {
		t.Fatalf("backtester missing status %d", code)
	}
}

func TestBacktestUpstreamFailure(t *testing.T) {
	e := newEcho(nil, stubSource{err: errors.New("503 from exchange")})
	code, env := do(t, e, http.MethodPost, "/api/backtest", `{"market":"KRW-BTC","count":10}`)
	if code != http.StatusBadGateway || !strings.Contains(string(env.Data), "ERR_UPSTREAM") {
		t.Fatalf("upstream failure %d %s", code, env.Data)
	}
}
