package models

import "time"

// PositionEvent describes an entry or an exit for notification sinks.
type PositionEvent struct {
	Market     string    `json:"market"`
	Strategy   string    `json:"strategy"`
	Reason     string    `json:"reason"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`   // capital committed
	Volume     float64   `json:"volume"` // units of the asset
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	RiskReward float64   `json:"risk_reward,omitempty"`
	PnL        float64   `json:"pnl,omitempty"`
	PnLPct     float64   `json:"pnl_pct,omitempty"`
	At         time.Time `json:"at"`
}

// SessionSummary is the end-of-session ledger report.
type SessionSummary struct {
	Market           string    `json:"market"`
	Strategy         string    `json:"strategy"`
	TotalTrades      int       `json:"total_trades"`
	Wins             int       `json:"wins"`
	Losses           int       `json:"losses"`
	WinRate          float64   `json:"win_rate"`
	CumulativePnLPct float64   `json:"cumulative_pnl_pct"`
	AvgPnLPct        float64   `json:"avg_pnl_pct"`
	MaxDrawdownPct   float64   `json:"max_drawdown_pct"`
	FreeCapital      float64   `json:"free_capital"`
	At               time.Time `json:"at"`
}

// SummaryFromLedger builds a SessionSummary out of a ledger.
func SummaryFromLedger(market, strategy string, l Ledger, at time.Time) SessionSummary {
	return SessionSummary{
		Market:           market,
		Strategy:         strategy,
		TotalTrades:      l.TotalTrades(),
		Wins:             l.WinCount,
		Losses:           l.LossCount,
		WinRate:          l.WinRate(),
		CumulativePnLPct: l.CumulativePnLPct,
		AvgPnLPct:        l.AvgPnLPct(),
		MaxDrawdownPct:   l.MaxDrawdownPct,
		FreeCapital:      l.FreeCapital,
		At:               at,
	}
}
