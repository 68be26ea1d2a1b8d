package usecase

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"FlowTrader/internal/aggregator"
	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/strategy"
)

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func candle(i int, o, h, l, c float64) models.Candle {
	return models.Candle{
		Market:         "KRW-BTC",
		TimeUTC:        base.Add(time.Duration(i) * time.Minute),
		Open:           o,
		High:           h,
		Low:            l,
		Close:          c,
		AccTradeVolume: 10,
	}
}

// firstBullish buys once, on the first bullish candle, with fixed levels.
func firstBullish() strategy.Strategy {
	bought := false
	return strategy.Func{ID: "first_bullish", Fn: func(st *models.MarketState, pos models.PositionState) models.Signal {
		if bought || pos.InPosition() || !st.HasMutation || !st.Mutation.Bullish() {
			return models.Hold()
		}
		bought = true
		return models.Buy("first bullish", 95, 115, 1.0)
	}}
}

type recordingNotifier struct {
	mu      sync.Mutex
	opened  []models.PositionEvent
	closed  []models.PositionEvent
	summary []models.SessionSummary
}

func (n *recordingNotifier) PositionOpened(_ context.Context, ev models.PositionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, ev)
	return nil
}

func (n *recordingNotifier) PositionClosed(_ context.Context, ev models.PositionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, ev)
	return nil
}

func (n *recordingNotifier) SessionEnded(_ context.Context, s models.SessionSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summary = append(n.summary, s)
	return nil
}

func newBacktester(src drepo.CandleSource, observer RunObserver) *Backtester {
	return NewBacktester(NewHistoryFetcher(src, nil), aggregator.DefaultConfig(), nil, nil, observer, nil)
}

func TestReplayEndToEnd(t *testing.T) {
	const fee = 0.0005
	candles := []models.Candle{
		candle(0, 100, 105, 95, 102),
		candle(1, 102, 110, 100, 108),
		candle(2, 108, 109, 95, 96),
	}
	notifier := &recordingNotifier{}
	res, err := newBacktester(nil, nil).Replay(context.Background(), candles, ReplayConfig{
		Market:         "KRW-BTC",
		InitialCapital: 1000,
		FeePct:         fee,
		Notifier:       notifier,
	}, firstBullish())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades %+v", res.Trades)
	}
	tr := res.Trades[0]
	if tr.EntryPrice != 102 || tr.ExitPrice != 96 || tr.Reason != ReasonEndOfTest {
		t.Fatalf("trade %+v", tr)
	}
	wantPnL := (96.0/102.0 - 1) - 2*fee
	if math.Abs(tr.PnLPct-wantPnL) > 1e-12 {
		t.Fatalf("pnl %v, want %v", tr.PnLPct, wantPnL)
	}
	if math.Abs(res.Ledger.FreeCapital-1000*(1+wantPnL)) > 1e-9 {
		t.Fatalf("free capital %v", res.Ledger.FreeCapital)
	}
	if res.Ledger.LossCount != 1 || res.Ledger.WinCount != 0 {
		t.Fatalf("ledger %+v", res.Ledger)
	}

	kinds := make([]models.SignalKind, len(res.Signals))
	for i, s := range res.Signals {
		kinds[i] = s.Signal.Kind
	}
	if !reflect.DeepEqual(kinds, []models.SignalKind{models.SignalBuy, models.SignalSell}) {
		t.Fatalf("signals %+v", res.Signals)
	}
	if len(notifier.opened) != 1 || len(notifier.closed) != 1 || len(notifier.summary) != 1 {
		t.Fatalf("notifications opened=%d closed=%d summary=%d", len(notifier.opened), len(notifier.closed), len(notifier.summary))
	}
	if notifier.summary[0].TotalTrades != 1 {
		t.Fatalf("summary %+v", notifier.summary[0])
	}
}

func TestReplayTakeProfitOnTick(t *testing.T) {
	candles := []models.Candle{
		candle(0, 100, 105, 95, 102),
		candle(1, 102, 120, 100, 116),
		candle(2, 116, 118, 110, 111),
	}
	res, err := newBacktester(nil, nil).Replay(context.Background(), candles, ReplayConfig{Market: "KRW-BTC", InitialCapital: 1000}, firstBullish())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Trades) != 1 || res.Trades[0].ExitPrice != 116 || res.Trades[0].Reason != "Take profit" {
		t.Fatalf("trades %+v", res.Trades)
	}
	if res.Ledger.WinCount != 1 {
		t.Fatalf("ledger %+v", res.Ledger)
	}
}

func TestReplayWarmupSkipsDecisions(t *testing.T) {
	candles := []models.Candle{
		candle(0, 100, 105, 95, 102),
		candle(1, 102, 110, 100, 108),
		candle(2, 108, 109, 95, 96),
	}
	res, err := newBacktester(nil, nil).Replay(context.Background(), candles, ReplayConfig{Market: "KRW-BTC", Warmup: 2, InitialCapital: 1000}, firstBullish())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Trades) != 0 || len(res.Signals) != 0 {
		t.Fatalf("warmup candles must not trade: %+v", res.Trades)
	}
	if res.Candles != 1 || res.Warmup != 2 || !res.From.Equal(candles[2].TimeUTC) {
		t.Fatalf("result bounds %+v", res)
	}
}

func syntheticCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 1000.0
	for i := range out {
		drift := 8 * math.Sin(float64(i)/9)
		if i%37 == 0 {
			drift += 25
		}
		o := price
		c := price + drift
		hi, lo := math.Max(o, c)+3, math.Min(o, c)-3
		out[i] = candle(i, o, hi, lo, c)
		out[i].AccTradeVolume = 10 + float64(i%7)
		if i%37 == 0 {
			out[i].AccTradeVolume = 80
		}
		price = c
	}
	return out
}

func TestReplayDeterministic(t *testing.T) {
	candles := syntheticCandles(400)
	bt := newBacktester(nil, nil)
	for _, kind := range strategy.Kinds() {
		run := func() *BacktestResult {
			s, err := strategy.New(kind, strategy.DefaultParams())
			if err != nil {
				t.Fatalf("%s: %v", kind, err)
			}
			res, err := bt.Replay(context.Background(), candles, ReplayConfig{Market: "KRW-BTC", InitialCapital: 1e6, FeePct: 0.0005}, s)
			if err != nil {
				t.Fatalf("%s: %v", kind, err)
			}
			return res
		}
		a, b := run(), run()
		if !reflect.DeepEqual(a.Signals, b.Signals) || !reflect.DeepEqual(a.Ledger, b.Ledger) || !reflect.DeepEqual(a.Trades, b.Trades) {
			t.Fatalf("%s: replays differ", kind)
		}
		if a.Ledger.TotalTrades() > 0 {
			want := a.Ledger.InitialCapital * (1 + a.Ledger.CumulativePnLPct)
			if math.Abs(a.Ledger.FreeCapital-want) > 1e-6 {
				t.Fatalf("%s: capital %v, want %v", kind, a.Ledger.FreeCapital, want)
			}
		}
	}
}

func TestReplayRejectsEmptyInput(t *testing.T) {
	_, err := newBacktester(nil, nil).Replay(context.Background(), nil, ReplayConfig{Market: "KRW-BTC"}, firstBullish())
	if !errors.Is(err, ErrNoCandles) {
		t.Fatalf("expected ErrNoCandles, got %v", err)
	}
}

// fakeSource serves candles newest first, strictly before the cursor.
type fakeSource struct {
	candles []models.Candle // oldest first
	calls   []time.Time
	failAt  int
}

func (f *fakeSource) Candles(_ context.Context, _ string, _ drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	f.calls = append(f.calls, to)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, errors.New("502 bad gateway")
	}
	var page []models.Candle
	for i := len(f.candles) - 1; i >= 0 && len(page) < count; i-- {
		c := f.candles[i]
		if to.IsZero() || c.TimeUTC.Before(to) {
			page = append(page, c)
		}
	}
	return page, nil
}

func sourceOf(n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.candles = append(src.candles, candle(i, 1, 2, 0.5, float64(i)))
	}
	return src
}

func TestHistoryFetchPaginates(t *testing.T) {
	src := sourceOf(500)
	got, err := NewHistoryFetcher(src, nil).Fetch(context.Background(), "KRW-BTC", drepo.Unit1m, time.Time{}, 450)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 450 {
		t.Fatalf("got %d candles", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].TimeUTC.After(got[i-1].TimeUTC) {
			t.Fatalf("not chronological at %d", i)
		}
	}
	if got[len(got)-1].Close != 499 || got[0].Close != 50 {
		t.Fatalf("range %v..%v", got[0].Close, got[len(got)-1].Close)
	}
	if len(src.calls) != 3 {
		t.Fatalf("%d page requests, want 3", len(src.calls))
	}
	if !src.calls[0].IsZero() || !src.calls[1].Equal(src.candles[300].TimeUTC) || !src.calls[2].Equal(src.candles[100].TimeUTC) {
		t.Fatalf("cursors %v", src.calls)
	}
}

func TestHistoryFetchStopsWhenExhausted(t *testing.T) {
	src := sourceOf(250)
	got, err := NewHistoryFetcher(src, nil).Fetch(context.Background(), "KRW-BTC", drepo.Unit1m, time.Time{}, 1000)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 250 {
		t.Fatalf("got %d candles", len(got))
	}

	_, err = NewHistoryFetcher(&fakeSource{}, nil).Fetch(context.Background(), "KRW-BTC", drepo.Unit1m, time.Time{}, 10)
	if !errors.Is(err, ErrNoCandles) {
		t.Fatalf("expected ErrNoCandles, got %v", err)
	}
}

func TestHistoryFetchError(t *testing.T) {
	src := sourceOf(500)
	src.failAt = 2
	_, err := NewHistoryFetcher(src, nil).Fetch(context.Background(), "KRW-BTC", drepo.Unit1m, time.Time{}, 450)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Market != "KRW-BTC" || !fe.Cursor.Equal(src.candles[300].TimeUTC) || fe.Unwrap() == nil {
		t.Fatalf("fetch error %+v", fe)
	}
}

type recordingObserver struct {
	runs int
	err  error
}

func (o *recordingObserver) ObserveRun(_, _ string, _ int, _ float64, _ time.Duration, err error) {
	o.runs++
	o.err = err
}

func TestBacktesterRun(t *testing.T) {
	src := &fakeSource{candles: syntheticCandles(300)}
	obs := &recordingObserver{}
	bt := newBacktester(src, obs)

	res, err := bt.Run(context.Background(), BacktestParams{
		Market:         "KRW-BTC",
		Unit:           drepo.Unit1m,
		Count:          250,
		Warmup:         20,
		Strategy:       strategy.KindBreakout,
		Params:         strategy.DefaultParams(),
		InitialCapital: 1e6,
		FeePct:         0.0005,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Candles != 250 || res.Warmup != 20 || res.Strategy != "breakout" {
		t.Fatalf("result %+v", res)
	}
	if res.Ledger.FreeCapital <= 0 || res.Summary.TotalTrades != len(res.Trades) {
		t.Fatalf("ledger %+v summary %+v", res.Ledger, res.Summary)
	}
	if obs.runs != 1 || obs.err != nil {
		t.Fatalf("observer runs=%d err=%v", obs.runs, obs.err)
	}

	src.failAt = len(src.calls) + 1
	if _, err := bt.Run(context.Background(), BacktestParams{Market: "KRW-BTC", Count: 10, Strategy: strategy.KindBreakout, Params: strategy.DefaultParams(), InitialCapital: 1}); err == nil {
		t.Fatalf("expected fetch failure")
	}
	if obs.runs != 2 || obs.err == nil {
		t.Fatalf("failed run not observed")
	}

	if _, err := bt.Run(context.Background(), BacktestParams{Market: "KRW-BTC", Count: 10, Strategy: "nope"}); !errors.Is(err, strategy.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestBoard(t *testing.T) {
	b := NewBoard()
	b.Track("KRW-ETH", "KRW-BTC")
	b.Publish(models.SessionSnapshot{Market: "KRW-ETH", Price: 5})
	b.Track("KRW-ETH")

	list := b.List()
	if len(list) != 2 || list[0].Market != "KRW-BTC" || list[1].Price != 5 {
		t.Fatalf("list %+v", list)
	}
	if _, ok := b.Get("KRW-XRP"); ok {
		t.Fatalf("untracked market found")
	}
}
