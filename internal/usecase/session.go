package usecase

import (
	"context"
	"errors"
	"time"

	"FlowTrader/internal/aggregator"
	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/position"
	"FlowTrader/internal/strategy"
	applogger "FlowTrader/pkg/logger"
)

// snapshotTrades bounds the closed trades copied into a snapshot.
const snapshotTrades = 50

// ReasonEndOfTest closes any open position when a historical replay runs out of candles.
const ReasonEndOfTest = "End of test"

// SignalRecord is one non-hold decision and what the position manager did with it.
type SignalRecord struct {
	Time    time.Time     `json:"time"`
	Price   float64       `json:"price"`
	Signal  models.Signal `json:"signal"`
	Outcome string        `json:"outcome"`
}

// Session ties the aggregator, strategy and position manager of one
// instrument together. Historical and live drivers both go through Step, so
// the order aggregate, re-evaluate, decide, apply is the same for both.
type Session struct {
	market  string
	agg     *aggregator.Aggregator
	mgr     *position.Manager
	strat   strategy.Strategy
	metrics drepo.Metrics
	log     *applogger.Logger

	signals []SignalRecord
}

func NewSession(agg *aggregator.Aggregator, mgr *position.Manager, strat strategy.Strategy, metrics drepo.Metrics, l *applogger.Logger) *Session {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Session{
		market:  agg.Market(),
		agg:     agg,
		mgr:     mgr,
		strat:   strat,
		metrics: metrics,
		log:     l.With(applogger.String("market", agg.Market()), applogger.String("strategy", strat.Name())),
	}
}

func (s *Session) Market() string { return s.market }

func (s *Session) Strategy() string { return s.strat.Name() }

func (s *Session) Position() models.PositionState { return s.mgr.Position() }

func (s *Session) Ledger() models.Ledger { return s.mgr.Ledger() }

func (s *Session) Trades() []models.ClosedTrade { return s.mgr.Trades() }

// Signals returns a copy of the signal log.
func (s *Session) Signals() []SignalRecord {
	out := make([]SignalRecord, len(s.signals))
	copy(out, s.signals)
	return out
}

// Step runs one price observation through the position manager and the strategy.
func (s *Session) Step(ctx context.Context, price float64, at time.Time) models.Signal {
	if price <= 0 {
		return models.Hold()
	}
	s.mgr.OnPrice(ctx, price, at)

	st := s.agg.State()
	st.Price = price
	st.Time = at
	sig := s.strat.Decide(&st, s.mgr.Position())
	if sig.Kind == models.SignalHold {
		return sig
	}
	s.apply(ctx, sig, price, at)
	return sig
}

func (s *Session) apply(ctx context.Context, sig models.Signal, price float64, at time.Time) {
	s.metrics.RecordSignal(s.market, sig.Kind.String())
	out, err := s.mgr.Apply(ctx, sig, price, at)
	if err != nil {
		if errors.Is(err, position.ErrTrailingStopDecrease) {
			s.metrics.RecordError("trailing_stop")
		}
		s.log.Error("signal rejected", applogger.String("signal", sig.String()), applogger.Error(err))
	}
	s.signals = append(s.signals, SignalRecord{Time: at, Price: price, Signal: sig, Outcome: out.String()})
}

// Warm feeds a candle into the aggregator without deciding.
func (s *Session) Warm(c models.Candle) {
	s.agg.OnCandle(c)
}

// OnHistoricalCandle is one replay step: the candle is both the aggregation
// input and the price observation at its close.
func (s *Session) OnHistoricalCandle(ctx context.Context, c models.Candle) models.Signal {
	s.agg.OnCandle(c)
	return s.Step(ctx, c.Close, c.TimeUTC)
}

// Finish force-closes an open position at price and sends the session summary.
func (s *Session) Finish(ctx context.Context, price float64, at time.Time) {
	if s.mgr.Position().InPosition() {
		s.apply(ctx, models.Sell(ReasonEndOfTest), price, at)
	}
	s.mgr.NotifySummary(ctx, at)
}

func (s *Session) OnTrade(t models.Trade) { s.agg.OnTrade(t) }

func (s *Session) OnOrderbook(b models.Orderbook) { s.agg.OnOrderbook(b) }

// OnTicker is the live decision point: ticks are the most frequent price.
func (s *Session) OnTicker(ctx context.Context, t models.Ticker) models.Signal {
	price := s.agg.OnTicker(t)
	s.metrics.RecordLastPrice(s.market, price)
	at := t.Time
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.Step(ctx, price, at)
}

// OnLiveCandle only moves the aggregation boundary.
func (s *Session) OnLiveCandle(c models.Candle) {
	switch out := s.agg.OnCandle(c); out {
	case aggregator.CandleFinalized:
		st := s.agg.State()
		s.log.Debug("minute finalized",
			applogger.Time("minute", c.MinuteKey()),
			applogger.Float64("avg_volume", st.AvgVolume),
			applogger.Float64("avg_range", st.AvgRange),
			applogger.Int("buffered_trades", s.agg.BufferedTrades()),
		)
	case aggregator.CandleStale:
		s.metrics.RecordDropped("stale_candle")
		s.log.Debug("stale candle dropped", applogger.Time("minute", c.MinuteKey()))
	}
}

// Snapshot copies what readers outside the event loop may see.
func (s *Session) Snapshot(now time.Time) models.SessionSnapshot {
	st := s.agg.State()
	snap := models.SessionSnapshot{
		Market:       s.market,
		Strategy:     s.strat.Name(),
		Price:        st.Price,
		Time:         st.Time,
		Position:     s.mgr.Position(),
		Ledger:       s.mgr.Ledger(),
		AvgVolume:    st.AvgVolume,
		AvgRange:     st.AvgRange,
		HistoryLen:   len(st.History),
		FootprintLen: len(st.Footprints),
		UpdatedAt:    now,
	}
	if st.Orderbook != nil {
		snap.Imbalance = st.Orderbook.Imbalance()
	}
	trades := s.mgr.Trades()
	snap.RecentTrades = trades[max(0, len(trades)-snapshotTrades):]
	return snap
}

// Summary reports the ledger as a session summary.
func (s *Session) Summary(at time.Time) models.SessionSummary {
	return s.mgr.Summary(at)
}
