package upbit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/service/ratelimit"
	apphttp "FlowTrader/pkg/http"
	"FlowTrader/pkg/util"
)

// MaxPageSize is the most candles the exchange returns per request.
const MaxPageSize = 200

type restCandle struct {
	Market               string  `json:"market"`
	CandleDateTimeUTC    string  `json:"candle_date_time_utc"`
	CandleDateTimeKST    string  `json:"candle_date_time_kst"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	Timestamp            int64   `json:"timestamp"`
	CandleAccTradePrice  float64 `json:"candle_acc_trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

// REST is the historical minute-candle endpoint. It implements
// repository.CandleSource.
type REST struct {
	baseURL string
	client  *apphttp.Client
	pacer   *ratelimit.Pacer
}

func NewREST(baseURL string, client *apphttp.Client, pacer *ratelimit.Pacer) *REST {
	if client == nil {
		client = apphttp.NewClient()
	}
	return &REST{baseURL: baseURL, client: client, pacer: pacer}
}

var _ drepo.CandleSource = (*REST)(nil)

// Candles fetches one page, newest first. count is capped at MaxPageSize.
func (r *REST) Candles(ctx context.Context, market string, unit drepo.Unit, to time.Time, count int) ([]models.Candle, error) {
	if !drepo.IsValidUnit(unit) {
		return nil, fmt.Errorf("upbit candles: unsupported unit %d", unit)
	}
	if count <= 0 {
		return nil, nil
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := map[string][]string{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}
	if !to.IsZero() {
		query["to"] = []string{util.FormatCursor(to)}
	}

	var page []restCandle
	err := r.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:      apphttp.MethodGet,
		URL:         fmt.Sprintf("%s/candles/minutes/%d", r.baseURL, unit),
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}, &page)
	if err != nil {
		return nil, fmt.Errorf("upbit candles %s: %w", market, err)
	}

	out := make([]models.Candle, 0, len(page))
	for _, rc := range page {
		c, err := rc.toCandle()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (rc restCandle) toCandle() (models.Candle, error) {
	utc, err := util.ParseExchangeTime(rc.CandleDateTimeUTC, time.UTC)
	if err != nil {
		return models.Candle{}, fmt.Errorf("upbit candle time %q: %w", rc.CandleDateTimeUTC, err)
	}
	kst := utc.In(util.KST)
	if t, err := util.ParseExchangeTime(rc.CandleDateTimeKST, util.KST); err == nil {
		kst = t
	}
	return models.Candle{
		Market:         rc.Market,
		TimeUTC:        utc,
		TimeKST:        kst,
		Open:           rc.OpeningPrice,
		High:           rc.HighPrice,
		Low:            rc.LowPrice,
		Close:          rc.TradePrice,
		AccTradePrice:  rc.CandleAccTradePrice,
		AccTradeVolume: rc.CandleAccTradeVolume,
		Timestamp:      rc.Timestamp,
	}, nil
}
