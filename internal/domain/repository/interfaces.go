package repository

import (
	"context"
	"time"

	"FlowTrader/internal/domain/models"
)

// CandleSource returns up to count candles of one market that opened strictly
// before `to`, newest first. A zero `to` means "latest".
type CandleSource interface {
	Candles(ctx context.Context, market string, unit Unit, to time.Time, count int) ([]models.Candle, error)
}

// Notifier receives position lifecycle events. Implementations may block;
// callers that must not block wrap them asynchronously.
type Notifier interface {
	PositionOpened(ctx context.Context, ev models.PositionEvent) error
	PositionClosed(ctx context.Context, ev models.PositionEvent) error
	SessionEnded(ctx context.Context, s models.SessionSummary) error
}

type Metrics interface {
	RecordSignal(market, kind string)
	RecordPositionClosed(market, outcome string)
	RecordDropped(reason string)
	RecordError(kind string)
	RecordLastPrice(market string, price float64)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordSignal(string, string)         {}
func (NopMetrics) RecordPositionClosed(string, string) {}
func (NopMetrics) RecordDropped(string)                {}
func (NopMetrics) RecordError(string)                  {}
func (NopMetrics) RecordLastPrice(string, float64)     {}
func (NopMetrics) RecordLatency(string, float64)       {}
