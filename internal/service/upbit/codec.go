package upbit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/feed"
	"FlowTrader/pkg/util"
)

// Channel type discriminators of the SIMPLE format.
const (
	TypeTrade     = "trade"
	TypeOrderbook = "orderbook"
	TypeTicker    = "ticker"
	TypeCandle1m  = "candle.1m"
)

var channels = []string{TypeTrade, TypeOrderbook, TypeTicker, TypeCandle1m}

// Codec speaks the Upbit websocket SIMPLE format.
type Codec struct {
	Ticket string
}

func NewCodec(ticket string) Codec {
	if ticket == "" {
		ticket = "flowtrader"
	}
	return Codec{Ticket: ticket}
}

type ticketFrame struct {
	Ticket string `json:"ticket"`
}

type filterFrame struct {
	Type           string   `json:"type"`
	Codes          []string `json:"codes"`
	IsOnlyRealtime bool     `json:"is_only_realtime"`
}

type formatFrame struct {
	Format string `json:"format"`
}

// Subscription builds the single request covering every code on all four channels.
func (c Codec) Subscription(codes []string) ([]byte, error) {
	if len(codes) == 0 {
		return nil, errors.New("upbit: no codes to subscribe")
	}
	req := make([]any, 0, len(channels)+2)
	req = append(req, ticketFrame{Ticket: c.Ticket})
	for _, ch := range channels {
		req = append(req, filterFrame{Type: ch, Codes: codes, IsOnlyRealtime: true})
	}
	req = append(req, formatFrame{Format: "SIMPLE"})
	return json.Marshal(req)
}

type envelope struct {
	Type string `json:"ty"`
	Code string `json:"cd"`
}

type tradeMsg struct {
	Price          float64 `json:"tp"`
	Volume         float64 `json:"tv"`
	AskBid         string  `json:"ab"`
	TradeTimestamp int64   `json:"ttms"`
	Timestamp      int64   `json:"tms"`
	SequentialID   int64   `json:"sid"`
}

type tickerMsg struct {
	TradePrice     float64 `json:"tp"`
	OpeningPrice   float64 `json:"op"`
	HighPrice      float64 `json:"hp"`
	LowPrice       float64 `json:"lp"`
	TradeVolume    float64 `json:"tv"`
	AccTradeVolume float64 `json:"atv"`
	AccTradePrice  float64 `json:"atp"`
	AskBid         string  `json:"ab"`
	Timestamp      int64   `json:"tms"`
}

type orderbookUnitMsg struct {
	AskPrice float64 `json:"ap"`
	BidPrice float64 `json:"bp"`
	AskSize  float64 `json:"as"`
	BidSize  float64 `json:"bs"`
}

type orderbookMsg struct {
	TotalAskSize float64            `json:"tas"`
	TotalBidSize float64            `json:"tbs"`
	Units        []orderbookUnitMsg `json:"obu"`
	Timestamp    int64              `json:"tms"`
}

type candleMsg struct {
	TimeUTC        string  `json:"cdttmu"`
	TimeKST        string  `json:"cdttmk"`
	Open           float64 `json:"op"`
	High           float64 `json:"hp"`
	Low            float64 `json:"lp"`
	Close          float64 `json:"tp"`
	AccTradePrice  float64 `json:"catp"`
	AccTradeVolume float64 `json:"catv"`
	Timestamp      int64   `json:"tms"`
}

// Decode routes a frame by its ty discriminator.
func (Codec) Decode(b []byte) (feed.Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return feed.Event{}, fmt.Errorf("upbit envelope: %w", err)
	}
	if env.Code == "" {
		return feed.Event{}, fmt.Errorf("upbit %s frame without code", env.Type)
	}

	ev := feed.Event{Code: env.Code}
	switch env.Type {
	case TypeTrade:
		var m tradeMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return feed.Event{}, fmt.Errorf("upbit trade: %w", err)
		}
		at := m.TradeTimestamp
		if at == 0 {
			at = m.Timestamp
		}
		ev.Type = feed.EventTrade
		ev.Trade = models.Trade{
			Market:       env.Code,
			Price:        m.Price,
			Volume:       m.Volume,
			Side:         models.ParseSide(m.AskBid),
			Time:         util.FromMillis(at),
			SequentialID: m.SequentialID,
		}
	case TypeTicker:
		var m tickerMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return feed.Event{}, fmt.Errorf("upbit ticker: %w", err)
		}
		ev.Type = feed.EventTicker
		ev.Ticker = models.Ticker{
			Market:         env.Code,
			TradePrice:     m.TradePrice,
			OpeningPrice:   m.OpeningPrice,
			HighPrice:      m.HighPrice,
			LowPrice:       m.LowPrice,
			TradeVolume:    m.TradeVolume,
			AccTradeVolume: m.AccTradeVolume,
			AccTradePrice:  m.AccTradePrice,
			Side:           models.ParseSide(m.AskBid),
			Time:           util.FromMillis(m.Timestamp),
		}
	case TypeOrderbook:
		var m orderbookMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return feed.Event{}, fmt.Errorf("upbit orderbook: %w", err)
		}
		units := make([]models.OrderbookUnit, len(m.Units))
		for i, u := range m.Units {
			units[i] = models.OrderbookUnit{AskPrice: u.AskPrice, BidPrice: u.BidPrice, AskSize: u.AskSize, BidSize: u.BidSize}
		}
		ev.Type = feed.EventOrderbook
		ev.Orderbook = models.Orderbook{
			Market:       env.Code,
			TotalAskSize: m.TotalAskSize,
			TotalBidSize: m.TotalBidSize,
			Units:        units,
			Time:         util.FromMillis(m.Timestamp),
		}
	case TypeCandle1m:
		var m candleMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return feed.Event{}, fmt.Errorf("upbit candle: %w", err)
		}
		c, err := m.toCandle(env.Code)
		if err != nil {
			return feed.Event{}, err
		}
		ev.Type = feed.EventCandle
		ev.Candle = c
	default:
		return feed.Event{}, fmt.Errorf("%w: %q", feed.ErrUnsupported, env.Type)
	}
	return ev, nil
}

func (m candleMsg) toCandle(market string) (models.Candle, error) {
	utc, err := util.ParseExchangeTime(m.TimeUTC, time.UTC)
	if err != nil {
		return models.Candle{}, fmt.Errorf("upbit candle time %q: %w", m.TimeUTC, err)
	}
	kst := utc.In(util.KST)
	if m.TimeKST != "" {
		if t, err := util.ParseExchangeTime(m.TimeKST, util.KST); err == nil {
			kst = t
		}
	}
	return models.Candle{
		Market:         market,
		TimeUTC:        utc,
		TimeKST:        kst,
		Open:           m.Open,
		High:           m.High,
		Low:            m.Low,
		Close:          m.Close,
		AccTradePrice:  m.AccTradePrice,
		AccTradeVolume: m.AccTradeVolume,
		Timestamp:      m.Timestamp,
	}, nil
}
