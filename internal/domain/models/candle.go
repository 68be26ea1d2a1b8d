package models

import "time"

// Candle is an OHLCV bar. TimeUTC/TimeKST hold the bar's opening minute.
type Candle struct {
	Market         string    `json:"market"`
	TimeUTC        time.Time `json:"time_utc"`
	TimeKST        time.Time `json:"time_kst"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	AccTradePrice  float64   `json:"acc_trade_price"`
	AccTradeVolume float64   `json:"acc_trade_volume"`
	Timestamp      int64     `json:"timestamp"` // ms, last update
}

// MinuteKey identifies the minute a candle belongs to.
func (c Candle) MinuteKey() time.Time {
	return c.TimeUTC.UTC().Truncate(time.Minute)
}

func (c Candle) Bullish() bool { return c.Close > c.Open }

func (c Candle) Range() float64 { return c.High - c.Low }
