package repository

import (
	"context"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	applogger "FlowTrader/pkg/logger"
)

// CandleArchive persists fetched candles; *CHCandleStore implements it.
type CandleArchive interface {
	SaveCandles(ctx context.Context, unit drepo.Unit, candles []models.Candle) error
}

// ArchivingSource copies every closed candle it serves into an archive, so
// later replays can read them from ClickHouse instead of the exchange.
// Archive failures are logged and never fail the fetch.
type ArchivingSource struct {
	next    drepo.CandleSource
	archive CandleArchive
	l       *applogger.Logger
}

var _ drepo.CandleSource = (*ArchivingSource)(nil)

func NewArchivingSource(next drepo.CandleSource, archive CandleArchive, l *applogger.Logger) *ArchivingSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingSource{next: next, archive: archive, l: l}
}

func (s *ArchivingSource) Candles(ctx context.Context, market string, unit drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	page, err := s.next.Candles(ctx, market, unit, to, count)
	if err != nil || len(page) == 0 {
		return page, err
	}
	closed := page
	if to.IsZero() {
		// newest first: the head of a latest page is the forming minute
		closed = page[1:]
	}
	if len(closed) > 0 {
		if err := s.archive.SaveCandles(ctx, unit, closed); err != nil {
			s.l.Warn("candle archive failed", applogger.String("market", market), applogger.Error(err))
		}
	}
	return page, nil
}
