package models

import "time"

// MarketState is the decision-ready view of one instrument. Slices are shared
// with the aggregator and are only valid until its next update.
type MarketState struct {
	Market       string
	Price        float64
	Time         time.Time
	History      []Candle
	Mutation     Candle
	HasMutation  bool
	Footprints   []Footprint
	FootprintSeq uint64
	AvgVolume    float64
	AvgRange     float64
	Ticker       *Ticker
	Orderbook    *Orderbook
}

// LastFootprint returns the footprint of the most recently finalized minute.
func (s MarketState) LastFootprint() (Footprint, bool) {
	if len(s.Footprints) == 0 {
		return Footprint{}, false
	}
	return s.Footprints[len(s.Footprints)-1], true
}

// LastFinalized returns the most recently finalized candle.
func (s MarketState) LastFinalized() (Candle, bool) {
	if len(s.History) == 0 {
		return Candle{}, false
	}
	return s.History[len(s.History)-1], true
}

// SessionSnapshot is a copy of one live session published for readers
// outside the event loop.
type SessionSnapshot struct {
	Market       string        `json:"market"`
	Strategy     string        `json:"strategy"`
	Price        float64       `json:"price"`
	Time         time.Time     `json:"time"`
	Position     PositionState `json:"position"`
	Ledger       Ledger        `json:"ledger"`
	AvgVolume    float64       `json:"avg_volume"`
	AvgRange     float64       `json:"avg_range"`
	HistoryLen   int           `json:"history_len"`
	FootprintLen int           `json:"footprint_len"`
	Imbalance    float64       `json:"orderbook_imbalance"`
	RecentTrades []ClosedTrade `json:"recent_trades"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
