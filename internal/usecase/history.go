package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	applogger "FlowTrader/pkg/logger"
)

// ErrNoCandles is returned when the source has nothing for the requested range.
var ErrNoCandles = errors.New("no candles")

// DefaultPageSize is the exchange's per-request candle limit.
const DefaultPageSize = 200

// FetchError reports a failed page of a historical fetch.
type FetchError struct {
	Market string
	Cursor time.Time
	Err    error
}

func (e *FetchError) Error() string {
	cursor := "latest"
	if !e.Cursor.IsZero() {
		cursor = e.Cursor.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("fetch %s candles before %s: %v", e.Market, cursor, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HistoryFetcher pages a CandleSource backwards in time.
type HistoryFetcher struct {
	source   drepo.CandleSource
	pageSize int
	log      *applogger.Logger
}

func NewHistoryFetcher(source drepo.CandleSource, l *applogger.Logger) *HistoryFetcher {
	if l == nil {
		l = applogger.Nop()
	}
	return &HistoryFetcher{source: source, pageSize: DefaultPageSize, log: l}
}

// Fetch returns up to count candles that opened before `to` (latest when zero),
// oldest first. Each page's earliest candle becomes the next cursor.
func (f *HistoryFetcher) Fetch(ctx context.Context, market string, unit drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	if count <= 0 {
		return nil, fmt.Errorf("fetch %s: count must be positive", market)
	}
	out := make([]models.Candle, 0, count)
	cursor := to
	for len(out) < count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(f.pageSize, count-len(out))
		page, err := f.source.Candles(ctx, market, unit, cursor, n)
		if err != nil {
			return nil, &FetchError{Market: market, Cursor: cursor, Err: err}
		}

		added := 0
		for _, c := range page {
			if !cursor.IsZero() && !c.TimeUTC.Before(cursor) {
				continue
			}
			if len(out) == count {
				break
			}
			out = append(out, c)
			cursor = c.TimeUTC
			added++
		}
		f.log.Debug("history page",
			applogger.String("market", market),
			applogger.Int("requested", n),
			applogger.Int("received", len(page)),
			applogger.Int("total", len(out)),
		)
		if added == 0 || len(page) < n {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", market, ErrNoCandles)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
