package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	pkgch "FlowTrader/pkg/clickhouse"
	applogger "FlowTrader/pkg/logger"
	"FlowTrader/pkg/util"
)

const insertChunk = 2000

// CandleSchema creates the candle table used by CHCandleStore.
func CandleSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    market String,
    unit UInt16,
    minute DateTime('UTC'),
    open Float64,
    high Float64,
    low Float64,
    close Float64,
    acc_trade_price Float64,
    acc_trade_volume Float64
) ENGINE = ReplacingMergeTree
ORDER BY (market, unit, minute)`, table)
}

// CHCandleStore serves archived candles with the same newest-first paging
// contract as the exchange REST endpoint.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ drepo.CandleSource = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: ch.DB(), table: table, l: l}
}

func (s *CHCandleStore) Candles(ctx context.Context, market string, unit drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	start := time.Now()
	q, args := candleQuery(s.table, market, unit, to, count)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse candles query error",
			applogger.String("table", s.table),
			applogger.String("market", market),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, count)
	for rows.Next() {
		c := models.Candle{Market: market}
		if err := rows.Scan(&c.TimeUTC, &c.Open, &c.High, &c.Low, &c.Close, &c.AccTradePrice, &c.AccTradeVolume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.TimeUTC = c.TimeUTC.UTC()
		c.TimeKST = c.TimeUTC.In(util.KST)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse candles ok",
		applogger.String("market", market),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// SaveCandles archives candles; rows for an existing minute are replaced on merge.
func (s *CHCandleStore) SaveCandles(ctx context.Context, unit drepo.Unit, candles []models.Candle) error {
	for lo := 0; lo < len(candles); lo += insertChunk {
		hi := min(lo+insertChunk, len(candles))
		q, args := insertQuery(s.table, unit, candles[lo:hi])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert candles: %w", err)
		}
	}
	if len(candles) > 0 {
		s.l.Info("candles archived",
			applogger.String("table", s.table),
			applogger.String("market", candles[0].Market),
			applogger.Int("rows", len(candles)),
		)
	}
	return nil
}

func candleQuery(table, market string, unit drepo.Unit, to time.Time, count int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT minute, open, high, low, close, acc_trade_price, acc_trade_volume FROM %s WHERE market = ? AND unit = ?", table)
	args := []any{market, uint16(unit)}
	if !to.IsZero() {
		b.WriteString(" AND minute < ?")
		args = append(args, to.UTC())
	}
	b.WriteString(" ORDER BY minute DESC LIMIT ?")
	args = append(args, count)
	return b.String(), args
}

func insertQuery(table string, unit drepo.Unit, candles []models.Candle) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (market, unit, minute, open, high, low, close, acc_trade_price, acc_trade_volume) VALUES ", table)
	args := make([]any, 0, len(candles)*9)
	for i, c := range candles {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, c.Market, uint16(unit), c.TimeUTC.UTC(), c.Open, c.High, c.Low, c.Close, c.AccTradePrice, c.AccTradeVolume)
	}
	return b.String(), args
}
