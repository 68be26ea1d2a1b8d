package indicator

import (
	"math"
	"testing"

	"FlowTrader/internal/domain/models"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func candle(o, h, l, c, v float64) models.Candle {
	return models.Candle{Open: o, High: h, Low: l, Close: c, AccTradeVolume: v}
}

func TestSMAAndEMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := SMA(vals, 3); !approx(got, 4) {
		t.Fatalf("sma: got %v", got)
	}
	if got := SMA(vals, 6); got != 0 {
		t.Fatalf("sma short input: got %v", got)
	}
	// seed (1+2+3)/3=2, alpha=0.5: 3 then 4
	if got := EMA(vals, 3); !approx(got, 4) {
		t.Fatalf("ema: got %v", got)
	}
}

func TestTrueRangesUsePreviousClose(t *testing.T) {
	cs := []models.Candle{candle(100, 105, 95, 102, 1), candle(102, 110, 104, 108, 1), candle(108, 109, 95, 96, 1)}
	trs := TrueRanges(cs)
	want := []float64{10, 8, 14}
	for i := range want {
		if !approx(trs[i], want[i]) {
			t.Fatalf("tr[%d]: got %v want %v", i, trs[i], want[i])
		}
	}
	if got := AverageTrueRange(cs, 20); !approx(got, 32.0/3) {
		t.Fatalf("atr over available: got %v", got)
	}
	if got := AverageTrueRange(cs, 2); !approx(got, 11) {
		t.Fatalf("atr window 2: got %v", got)
	}
	if got := AverageTrueRange(nil, 20); got != 0 {
		t.Fatalf("empty atr: got %v", got)
	}
}

func TestAverageVolume(t *testing.T) {
	cs := []models.Candle{candle(1, 1, 1, 1, 10), candle(1, 1, 1, 1, 20), candle(1, 1, 1, 1, 30)}
	if got := AverageVolume(cs, 2); !approx(got, 25) {
		t.Fatalf("avg volume: got %v", got)
	}
	if got := AverageVolume(nil, 10); got != 0 {
		t.Fatalf("empty avg volume: got %v", got)
	}
}

func TestRSI(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6}
	if got := RSI(up, 5); got != 100 {
		t.Fatalf("rsi all gains: got %v", got)
	}
	if got := RSI(up, 14); got != 50 {
		t.Fatalf("rsi short input should be neutral: got %v", got)
	}
	flat := []float64{3, 3, 3, 3}
	if got := RSI(flat, 3); got != 50 {
		t.Fatalf("rsi flat: got %v", got)
	}
	mixed := []float64{10, 11, 10, 11, 10}
	if got := RSI(mixed, 4); !approx(got, 50) {
		t.Fatalf("rsi balanced: got %v", got)
	}
}

func TestBollinger(t *testing.T) {
	b, ok := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	if !ok {
		t.Fatalf("expected bands")
	}
	if !approx(b.Middle, 5) || !approx(b.Upper, 9) || !approx(b.Lower, 1) {
		t.Fatalf("unexpected bands %+v", b)
	}
	if _, ok := Bollinger([]float64{1}, 2, 2); ok {
		t.Fatalf("expected no bands for short input")
	}
}

func TestHighestHighAndATR(t *testing.T) {
	cs := []models.Candle{candle(1, 5, 1, 2, 0), candle(2, 7, 2, 3, 0), candle(3, 6, 3, 4, 0)}
	if got := HighestHigh(cs, 2); got != 7 {
		t.Fatalf("highest high: got %v", got)
	}
	if got := ATR(cs, 4); got != 0 {
		t.Fatalf("atr short input: got %v", got)
	}
	// trs: 4, 5, 3 -> seed (4+5)/2=4.5, then (4.5+3)/2=3.75
	if got := ATR(cs, 2); !approx(got, 3.75) {
		t.Fatalf("wilder atr: got %v", got)
	}
}
