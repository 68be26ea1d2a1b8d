package models

import "time"

// PositionState is either flat (Open=false) or one long position.
type PositionState struct {
	Open              bool      `json:"open"`
	EntryPrice        float64   `json:"entry_price,omitempty"`
	EntryAsset        float64   `json:"entry_asset,omitempty"`
	TakeProfitPrice   float64   `json:"take_profit_price,omitempty"`
	TrailingStopPrice float64   `json:"trailing_stop_price,omitempty"`
	EntryTime         time.Time `json:"entry_time,omitempty"`
	Reason            string    `json:"reason,omitempty"`
}

func (p PositionState) InPosition() bool { return p.Open }

// ClosedTrade is one completed entry/exit cycle.
type ClosedTrade struct {
	Market     string    `json:"market"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryAsset float64   `json:"entry_asset"`
	PnLPct     float64   `json:"pnl_pct"`
	PnL        float64   `json:"pnl"`
	Reason     string    `json:"reason"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
}

// Ledger is the running performance record of one instrument.
// CumulativePnLPct is realized pnl relative to InitialCapital, so
// FreeCapital == InitialCapital*(1+CumulativePnLPct) whenever flat.
type Ledger struct {
	InitialCapital   float64 `json:"initial_capital"`
	FreeCapital      float64 `json:"free_capital"`
	WinCount         int     `json:"win_count"`
	LossCount        int     `json:"loss_count"`
	CumulativePnLPct float64 `json:"cumulative_pnl_pct"`
	TradePnLSumPct   float64 `json:"trade_pnl_sum_pct"`
	PeakCapital      float64 `json:"peak_capital"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
}

func NewLedger(initialCapital float64) Ledger {
	return Ledger{
		InitialCapital: initialCapital,
		FreeCapital:    initialCapital,
		PeakCapital:    initialCapital,
	}
}

func (l Ledger) TotalTrades() int { return l.WinCount + l.LossCount }

// WinRate is in [0,1]; 0 without trades.
func (l Ledger) WinRate() float64 {
	n := l.TotalTrades()
	if n == 0 {
		return 0
	}
	return float64(l.WinCount) / float64(n)
}

// AvgPnLPct is the mean per-trade pnl; 0 without trades.
func (l Ledger) AvgPnLPct() float64 {
	n := l.TotalTrades()
	if n == 0 {
		return 0
	}
	return l.TradePnLSumPct / float64(n)
}
