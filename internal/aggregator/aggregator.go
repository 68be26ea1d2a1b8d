// Package aggregator turns raw market events of one instrument into the
// decision-ready MarketState: finalized candle history, the in-progress
// mutation candle, per-minute footprints and rolling statistics.
package aggregator

import (
	"time"

	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/indicator"
)

type Config struct {
	HistoryCap   int
	FootprintCap int
	TradeHorizon time.Duration
	VolumeWindow int
	RangeWindow  int
}

func DefaultConfig() Config {
	return Config{
		HistoryCap:   200,
		FootprintCap: 200,
		TradeHorizon: 3 * time.Minute,
		VolumeWindow: 10,
		RangeWindow:  20,
	}
}

// CandleOutcome reports what a candle tick did to the aggregator.
type CandleOutcome int8

const (
	CandleStarted   CandleOutcome = iota // first candle seen
	CandleRefreshed                      // same minute, mutation overwritten
	CandleFinalized                      // new minute, previous mutation pushed to history
	CandleStale                          // older than the mutation minute, dropped
)

func (o CandleOutcome) String() string {
	switch o {
	case CandleStarted:
		return "started"
	case CandleRefreshed:
		return "refreshed"
	case CandleFinalized:
		return "finalized"
	default:
		return "stale"
	}
}

// Aggregator is owned by a single goroutine and is not safe for concurrent use.
type Aggregator struct {
	market string
	cfg    Config

	history      []models.Candle
	mutation     models.Candle
	hasMutation  bool
	footprints   []models.Footprint
	footprintSeq uint64
	trades       []models.Trade

	ticker    *models.Ticker
	orderbook *models.Orderbook

	avgVolume float64
	avgRange  float64
	price     float64
	at        time.Time
}

func New(market string, cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = def.HistoryCap
	}
	if cfg.FootprintCap <= 0 {
		cfg.FootprintCap = def.FootprintCap
	}
	if cfg.TradeHorizon <= 0 {
		cfg.TradeHorizon = def.TradeHorizon
	}
	if cfg.VolumeWindow <= 0 {
		cfg.VolumeWindow = def.VolumeWindow
	}
	if cfg.RangeWindow <= 0 {
		cfg.RangeWindow = def.RangeWindow
	}
	return &Aggregator{
		market:     market,
		cfg:        cfg,
		history:    make([]models.Candle, 0, cfg.HistoryCap),
		footprints: make([]models.Footprint, 0, cfg.FootprintCap),
	}
}

func (a *Aggregator) Market() string { return a.market }

// OnTrade buffers a trade until the minute it belongs to is finalized.
func (a *Aggregator) OnTrade(t models.Trade) {
	a.trades = append(a.trades, t)
}

// OnOrderbook keeps the latest book as-is.
func (a *Aggregator) OnOrderbook(b models.Orderbook) {
	a.orderbook = &b
}

// OnTicker records the latest ticker and returns its trade price.
func (a *Aggregator) OnTicker(t models.Ticker) float64 {
	a.ticker = &t
	a.price = t.TradePrice
	a.at = t.Time
	return a.price
}

// OnCandle applies one candle tick. A tick for the mutation minute overwrites
// it in place; a tick for a later minute finalizes the mutation candle first.
func (a *Aggregator) OnCandle(c models.Candle) CandleOutcome {
	if !a.hasMutation {
		a.adopt(c)
		return CandleStarted
	}

	key := c.MinuteKey()
	cur := a.mutation.MinuteKey()
	switch {
	case key.Equal(cur):
		a.adopt(c)
		return CandleRefreshed
	case key.Before(cur):
		return CandleStale
	}

	closed := a.mutation
	a.pushHistory(closed)
	a.avgVolume = indicator.AverageVolume(a.history, a.cfg.VolumeWindow)
	a.avgRange = indicator.AverageTrueRange(a.history, a.cfg.RangeWindow)

	// Trades of a minute that never got its own candle belong to no footprint.
	a.pushFootprint(a.buildFootprint(cur, cur.Add(time.Minute)))
	a.evictTrades(key.Add(-a.cfg.TradeHorizon))

	a.adopt(c)
	return CandleFinalized
}

func (a *Aggregator) adopt(c models.Candle) {
	a.mutation = c
	a.hasMutation = true
	a.price = c.Close
	a.at = c.TimeUTC
}

func (a *Aggregator) pushHistory(c models.Candle) {
	if len(a.history) >= a.cfg.HistoryCap {
		n := copy(a.history, a.history[len(a.history)-a.cfg.HistoryCap+1:])
		a.history = a.history[:n]
	}
	a.history = append(a.history, c)
}

func (a *Aggregator) buildFootprint(from, to time.Time) models.Footprint {
	fp := models.NewFootprint(from)
	for _, t := range a.trades {
		if !t.Time.Before(from) && t.Time.Before(to) {
			fp.Add(t)
		}
	}
	return fp
}

func (a *Aggregator) pushFootprint(fp models.Footprint) {
	if len(a.footprints) >= a.cfg.FootprintCap {
		n := copy(a.footprints, a.footprints[len(a.footprints)-a.cfg.FootprintCap+1:])
		a.footprints = a.footprints[:n]
	}
	a.footprints = append(a.footprints, fp)
	a.footprintSeq++
}

func (a *Aggregator) evictTrades(cutoff time.Time) {
	kept := a.trades[:0]
	for _, t := range a.trades {
		if !t.Time.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(a.trades); i++ {
		a.trades[i] = models.Trade{}
	}
	a.trades = kept
}

// BufferedTrades returns the number of trades awaiting attribution or eviction.
func (a *Aggregator) BufferedTrades() int { return len(a.trades) }

// State returns a read-only view that is valid until the next update.
func (a *Aggregator) State() models.MarketState {
	return models.MarketState{
		Market:       a.market,
		Price:        a.price,
		Time:         a.at,
		History:      a.history,
		Mutation:     a.mutation,
		HasMutation:  a.hasMutation,
		Footprints:   a.footprints,
		FootprintSeq: a.footprintSeq,
		AvgVolume:    a.avgVolume,
		AvgRange:     a.avgRange,
		Ticker:       a.ticker,
		Orderbook:    a.orderbook,
	}
}
