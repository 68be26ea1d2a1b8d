package position

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"FlowTrader/internal/domain/models"
)

type recordingNotifier struct {
	opened  []models.PositionEvent
	closed  []models.PositionEvent
	summary []models.SessionSummary
	err     error
}

func (n *recordingNotifier) PositionOpened(_ context.Context, ev models.PositionEvent) error {
	n.opened = append(n.opened, ev)
	return n.err
}

func (n *recordingNotifier) PositionClosed(_ context.Context, ev models.PositionEvent) error {
	n.closed = append(n.closed, ev)
	return n.err
}

func (n *recordingNotifier) SessionEnded(_ context.Context, s models.SessionSummary) error {
	n.summary = append(n.summary, s)
	return n.err
}

var (
	ctx = context.Background()
	at  = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
)

func newManager(n *recordingNotifier, fee float64) *Manager {
	return NewManager(Config{Market: "KRW-BTC", Strategy: "test", InitialCapital: 1000, FeePct: fee}, n, nil, nil)
}

func TestBuySellCycle(t *testing.T) {
	n := &recordingNotifier{}
	m := newManager(n, 0.001)

	out, err := m.Apply(ctx, models.Buy("test", 95, 115, 0.5), 100, at)
	if err != nil || out != OutcomeOpened {
		t.Fatalf("open: %v %v", out, err)
	}
	pos := m.Position()
	if !pos.InPosition() || pos.EntryAsset != 500 || pos.EntryPrice != 100 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if m.Ledger().FreeCapital != 500 {
		t.Fatalf("free capital not debited: %v", m.Ledger().FreeCapital)
	}

	out, _ = m.Apply(ctx, models.Sell("discretionary"), 110, at)
	if out != OutcomeClosed {
		t.Fatalf("close: %v", out)
	}
	wantPnL := 0.1 - 0.002
	l := m.Ledger()
	if math.Abs(l.FreeCapital-(500+500*(1+wantPnL))) > 1e-9 {
		t.Fatalf("unexpected free capital %v", l.FreeCapital)
	}
	if l.WinCount != 1 || l.LossCount != 0 {
		t.Fatalf("unexpected counters %+v", l)
	}
	if len(n.opened) != 1 || len(n.closed) != 1 {
		t.Fatalf("expected open and close notifications, got %d/%d", len(n.opened), len(n.closed))
	}
	if n.closed[0].Reason != "discretionary" || math.Abs(n.closed[0].PnLPct-wantPnL) > 1e-12 {
		t.Fatalf("unexpected close event %+v", n.closed[0])
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	m := newManager(&recordingNotifier{}, 0)

	if out, _ := m.Apply(ctx, models.Sell("x"), 100, at); out != OutcomeNone {
		t.Fatalf("sell while flat: %v", out)
	}
	if out, _ := m.Apply(ctx, models.UpdateTrailingStop(90), 100, at); out != OutcomeNone {
		t.Fatalf("trailing update while flat: %v", out)
	}
	if out, _ := m.Apply(ctx, models.Hold(), 100, at); out != OutcomeNone {
		t.Fatalf("hold: %v", out)
	}
	m.Apply(ctx, models.Buy("a", 90, 120, 1), 100, at)
	before := m.Position()
	if out, _ := m.Apply(ctx, models.Buy("b", 95, 130, 1), 105, at); out != OutcomeNone {
		t.Fatalf("buy while long: %v", out)
	}
	if m.Position() != before {
		t.Fatalf("position changed by ignored buy")
	}
}

func TestMalformedBuyRejected(t *testing.T) {
	m := newManager(&recordingNotifier{}, 0)
	cases := []models.Signal{
		models.Buy("stop above price", 101, 120, 1),
		models.Buy("target below price", 90, 99, 1),
		models.Buy("zero fraction", 90, 120, 0),
		models.Buy("fraction above one", 90, 120, 1.5),
	}
	for _, sig := range cases {
		if out, _ := m.Apply(ctx, sig, 100, at); out != OutcomeRejected {
			t.Fatalf("%s: got %v", sig.Reason, out)
		}
	}
	if m.Position().InPosition() || m.Ledger().FreeCapital != 1000 {
		t.Fatalf("rejected buys must not change state")
	}
}

func TestPriceTriggersExits(t *testing.T) {
	m := newManager(&recordingNotifier{}, 0)
	m.Apply(ctx, models.Buy("a", 95, 115, 1), 100, at)

	if out := m.OnPrice(ctx, 110, at); out != OutcomeNone {
		t.Fatalf("inside band: %v", out)
	}
	if out := m.OnPrice(ctx, 115, at); out != OutcomeClosed {
		t.Fatalf("take profit: %v", out)
	}
	if tr := m.Trades(); len(tr) != 1 || tr[0].Reason != ReasonTakeProfit || tr[0].ExitPrice != 115 {
		t.Fatalf("unexpected trades %+v", tr)
	}

	m.Apply(ctx, models.Buy("b", 95, 115, 1), 100, at)
	if out := m.OnPrice(ctx, 95, at); out != OutcomeClosed {
		t.Fatalf("stop: %v", out)
	}
	l := m.Ledger()
	if l.WinCount != 1 || l.LossCount != 1 {
		t.Fatalf("unexpected counters %+v", l)
	}
	if l.MaxDrawdownPct <= 0 {
		t.Fatalf("expected drawdown after a loss, got %v", l.MaxDrawdownPct)
	}
	if out := m.OnPrice(ctx, 50, at); out != OutcomeNone {
		t.Fatalf("flat manager must ignore prices: %v", out)
	}
}

func TestTrailingStopNeverDecreases(t *testing.T) {
	m := newManager(&recordingNotifier{}, 0)
	m.Apply(ctx, models.Buy("a", 90, 200, 1), 100, at)

	updates := []float64{91, 93, 92, 93, 97, 96, 99}
	last := m.Position().TrailingStopPrice
	for _, u := range updates {
		out, err := m.Apply(ctx, models.UpdateTrailingStop(u), 100, at)
		if u < last {
			if !errors.Is(err, ErrTrailingStopDecrease) || out != OutcomeRejected {
				t.Fatalf("decrease to %v accepted: %v %v", u, out, err)
			}
		} else if err != nil || out != OutcomeTrailingUpdated {
			t.Fatalf("update to %v: %v %v", u, out, err)
		}
		cur := m.Position().TrailingStopPrice
		if cur < last {
			t.Fatalf("trailing stop decreased from %v to %v", last, cur)
		}
		last = cur
	}
	if last != 99 {
		t.Fatalf("final trailing stop %v, want 99", last)
	}
}

func TestCapitalConservation(t *testing.T) {
	m := newManager(&recordingNotifier{}, 0.0005)
	cycles := []struct {
		frac, entry, exit float64
	}{
		{1, 100, 104},
		{0.5, 104, 101},
		{0.3, 101, 120},
		{0.8, 120, 90},
		{1, 90, 91},
	}
	for i, c := range cycles {
		if out, _ := m.Apply(ctx, models.Buy("c", c.entry*0.5, c.entry*2, c.frac), c.entry, at); out != OutcomeOpened {
			t.Fatalf("cycle %d: open %v", i, out)
		}
		if out, _ := m.Apply(ctx, models.Sell("c"), c.exit, at); out != OutcomeClosed {
			t.Fatalf("cycle %d: close %v", i, out)
		}
		l := m.Ledger()
		want := l.InitialCapital * (1 + l.CumulativePnLPct)
		if math.Abs(l.FreeCapital-want) > 1e-9 {
			t.Fatalf("cycle %d: free capital %v, want %v", i, l.FreeCapital, want)
		}
	}
}

func TestNotificationFailureDoesNotAffectState(t *testing.T) {
	n := &recordingNotifier{err: errors.New("webhook down")}
	m := newManager(n, 0)
	if out, _ := m.Apply(ctx, models.Buy("a", 90, 120, 1), 100, at); out != OutcomeOpened {
		t.Fatalf("open: %v", out)
	}
	if out, _ := m.Apply(ctx, models.Sell("b"), 100, at); out != OutcomeClosed {
		t.Fatalf("close: %v", out)
	}
	m.NotifySummary(ctx, at)
	if len(n.summary) != 1 || n.summary[0].TotalTrades != 1 {
		t.Fatalf("unexpected summary %+v", n.summary)
	}
	if m.Position().InPosition() || m.Ledger().FreeCapital != 1000 {
		t.Fatalf("unexpected state after failed notifications")
	}
}
