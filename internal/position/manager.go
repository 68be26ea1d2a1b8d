// Package position owns the per-instrument position state machine and its
// performance ledger.
package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/domain/repository"
	applogger "FlowTrader/pkg/logger"
)

// ErrTrailingStopDecrease is returned when an update would loosen the stop.
var ErrTrailingStopDecrease = errors.New("trailing stop decrease")

const (
	ReasonTakeProfit   = "Take profit"
	ReasonTrailingStop = "Trailing stop"
)

// Outcome reports what a price observation or a signal did.
type Outcome int8

const (
	OutcomeNone Outcome = iota
	OutcomeOpened
	OutcomeClosed
	OutcomeTrailingUpdated
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpened:
		return "opened"
	case OutcomeClosed:
		return "closed"
	case OutcomeTrailingUpdated:
		return "trailing_updated"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

type Config struct {
	Market         string
	Strategy       string
	InitialCapital float64
	FeePct         float64
}

// Manager is owned by a single goroutine and is not safe for concurrent use.
// The notifier is called inline, so it should not block.
type Manager struct {
	market   string
	strategy string
	fee      float64

	state  models.PositionState
	ledger models.Ledger
	trades []models.ClosedTrade

	notifier repository.Notifier
	metrics  repository.Metrics
	l        *applogger.Logger
}

func NewManager(cfg Config, notifier repository.Notifier, metrics repository.Metrics, l *applogger.Logger) *Manager {
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Manager{
		market:   cfg.Market,
		strategy: cfg.Strategy,
		fee:      cfg.FeePct,
		ledger:   models.NewLedger(cfg.InitialCapital),
		notifier: notifier,
		metrics:  metrics,
		l:        l,
	}
}

func (m *Manager) Position() models.PositionState { return m.state }

func (m *Manager) Ledger() models.Ledger { return m.ledger }

// Trades returns a copy of the closed-trade log.
func (m *Manager) Trades() []models.ClosedTrade {
	out := make([]models.ClosedTrade, len(m.trades))
	copy(out, m.trades)
	return out
}

// OnPrice re-evaluates an open position against its take-profit and
// trailing-stop thresholds. Closes fill at the observed price.
func (m *Manager) OnPrice(ctx context.Context, price float64, at time.Time) Outcome {
	if !m.state.Open || price <= 0 {
		return OutcomeNone
	}
	switch {
	case price >= m.state.TakeProfitPrice:
		m.close(ctx, price, ReasonTakeProfit, at)
		return OutcomeClosed
	case price <= m.state.TrailingStopPrice:
		m.close(ctx, price, ReasonTrailingStop, at)
		return OutcomeClosed
	}
	return OutcomeNone
}

// Apply filters a signal by the current state and performs the transition.
// Signals that do not fit the state are no-ops.
func (m *Manager) Apply(ctx context.Context, sig models.Signal, price float64, at time.Time) (Outcome, error) {
	switch sig.Kind {
	case models.SignalBuy:
		if m.state.Open {
			return OutcomeNone, nil
		}
		return m.open(ctx, sig, price, at), nil

	case models.SignalSell:
		if !m.state.Open {
			return OutcomeNone, nil
		}
		m.close(ctx, price, sig.Reason, at)
		return OutcomeClosed, nil

	case models.SignalUpdateTrailingStop:
		if !m.state.Open {
			return OutcomeNone, nil
		}
		if sig.NewPrice < m.state.TrailingStopPrice {
			return OutcomeRejected, fmt.Errorf("%w: %s %.8f -> %.8f",
				ErrTrailingStopDecrease, m.market, m.state.TrailingStopPrice, sig.NewPrice)
		}
		m.state.TrailingStopPrice = sig.NewPrice
		return OutcomeTrailingUpdated, nil
	}
	return OutcomeNone, nil
}

func (m *Manager) open(ctx context.Context, sig models.Signal, price float64, at time.Time) Outcome {
	if price <= 0 || sig.AssetFraction <= 0 || sig.AssetFraction > 1 ||
		sig.TakeProfit <= price || sig.InitialTrailingStop >= price || m.ledger.FreeCapital <= 0 {
		m.l.Warn("buy signal rejected",
			applogger.String("market", m.market),
			applogger.String("signal", sig.String()),
			applogger.Float64("price", price),
			applogger.Float64("free_capital", m.ledger.FreeCapital),
		)
		return OutcomeRejected
	}

	asset := m.ledger.FreeCapital * sig.AssetFraction
	m.ledger.FreeCapital -= asset
	m.state = models.PositionState{
		Open:              true,
		EntryPrice:        price,
		EntryAsset:        asset,
		TakeProfitPrice:   sig.TakeProfit,
		TrailingStopPrice: sig.InitialTrailingStop,
		EntryTime:         at,
		Reason:            sig.Reason,
	}

	rr := 0.0
	if risk := price - sig.InitialTrailingStop; risk > 0 {
		rr = (sig.TakeProfit - price) / risk
	}
	m.l.Info("position opened",
		applogger.String("market", m.market),
		applogger.String("reason", sig.Reason),
		applogger.Float64("price", price),
		applogger.Float64("asset", asset),
		applogger.Float64("take_profit", sig.TakeProfit),
		applogger.Float64("trailing_stop", sig.InitialTrailingStop),
	)
	m.notify(func() error {
		return m.notifier.PositionOpened(ctx, models.PositionEvent{
			Market:     m.market,
			Strategy:   m.strategy,
			Reason:     sig.Reason,
			Price:      price,
			Size:       asset,
			Volume:     asset / price,
			StopLoss:   sig.InitialTrailingStop,
			TakeProfit: sig.TakeProfit,
			RiskReward: rr,
			At:         at,
		})
	})
	return OutcomeOpened
}

func (m *Manager) close(ctx context.Context, price float64, reason string, at time.Time) {
	pos := m.state
	pnlPct := (price/pos.EntryPrice - 1) - 2*m.fee
	pnl := pos.EntryAsset * pnlPct

	m.ledger.FreeCapital += pos.EntryAsset * (1 + pnlPct)
	m.ledger.TradePnLSumPct += pnlPct
	if m.ledger.InitialCapital > 0 {
		m.ledger.CumulativePnLPct += pnl / m.ledger.InitialCapital
	}
	outcome := "loss"
	if pnlPct > 0 {
		m.ledger.WinCount++
		outcome = "win"
	} else {
		m.ledger.LossCount++
	}
	if m.ledger.FreeCapital > m.ledger.PeakCapital {
		m.ledger.PeakCapital = m.ledger.FreeCapital
	}
	if m.ledger.PeakCapital > 0 {
		dd := (m.ledger.PeakCapital - m.ledger.FreeCapital) / m.ledger.PeakCapital
		if dd > m.ledger.MaxDrawdownPct {
			m.ledger.MaxDrawdownPct = dd
		}
	}

	m.trades = append(m.trades, models.ClosedTrade{
		Market:     m.market,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		EntryAsset: pos.EntryAsset,
		PnLPct:     pnlPct,
		PnL:        pnl,
		Reason:     reason,
		EntryTime:  pos.EntryTime,
		ExitTime:   at,
	})
	m.state = models.PositionState{}

	m.metrics.RecordPositionClosed(m.market, outcome)
	m.l.Info("position closed",
		applogger.String("market", m.market),
		applogger.String("reason", reason),
		applogger.Float64("entry_price", pos.EntryPrice),
		applogger.Float64("exit_price", price),
		applogger.Float64("pnl_pct", pnlPct),
		applogger.Float64("free_capital", m.ledger.FreeCapital),
	)
	m.notify(func() error {
		return m.notifier.PositionClosed(ctx, models.PositionEvent{
			Market:   m.market,
			Strategy: m.strategy,
			Reason:   reason,
			Price:    price,
			Size:     pos.EntryAsset,
			Volume:   pos.EntryAsset / pos.EntryPrice,
			PnL:      pnl,
			PnLPct:   pnlPct,
			At:       at,
		})
	})
}

// Summary reports the ledger as a session summary.
func (m *Manager) Summary(at time.Time) models.SessionSummary {
	return models.SummaryFromLedger(m.market, m.strategy, m.ledger, at)
}

// NotifySummary sends the session summary to the notifier.
func (m *Manager) NotifySummary(ctx context.Context, at time.Time) {
	s := m.Summary(at)
	m.notify(func() error { return m.notifier.SessionEnded(ctx, s) })
}

func (m *Manager) notify(send func() error) {
	if m.notifier == nil {
		return
	}
	if err := send(); err != nil {
		m.metrics.RecordError("notify")
		m.l.Warn("notification failed", applogger.String("market", m.market), applogger.Error(err))
	}
}
