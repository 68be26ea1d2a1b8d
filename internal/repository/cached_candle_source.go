package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/service/cache"
	applogger "FlowTrader/pkg/logger"
)

// CachedCandleSource memoizes pages of another CandleSource. Only pages with
// an explicit cursor are cached: closed candles never change, while the
// latest page still holds the forming minute.
type CachedCandleSource struct {
	next  drepo.CandleSource
	cache cache.BytesCache
	ttl   time.Duration
	l     *applogger.Logger
}

var _ drepo.CandleSource = (*CachedCandleSource)(nil)

func NewCachedCandleSource(next drepo.CandleSource, c cache.BytesCache, ttl time.Duration, l *applogger.Logger) *CachedCandleSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedCandleSource{next: next, cache: c, ttl: ttl, l: l}
}

func (s *CachedCandleSource) Candles(ctx context.Context, market string, unit drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	if to.IsZero() {
		return s.next.Candles(ctx, market, unit, to, count)
	}
	key := pageKey(market, unit, to, count)
	if b, ok, err := s.cache.GetBytes(ctx, key); err != nil {
		s.l.Warn("candle cache read failed", applogger.String("key", key), applogger.Error(err))
	} else if ok {
		var page []models.Candle
		if err := json.Unmarshal(b, &page); err == nil {
			return page, nil
		}
		s.l.Warn("candle cache entry corrupt", applogger.String("key", key))
	}

	page, err := s.next.Candles(ctx, market, unit, to, count)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(page); err == nil {
		if err := s.cache.SetBytes(ctx, key, b, s.ttl); err != nil {
			s.l.Warn("candle cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return page, nil
}

func pageKey(market string, unit drepo.Unit, to time.Time, count int) string {
	return fmt.Sprintf("candles:%s:%d:%d:%d", market, unit, to.UTC().Unix(), count)
}
