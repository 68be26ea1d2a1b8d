package models

import "time"

type Ticker struct {
	Market         string    `json:"market"`
	TradePrice     float64   `json:"trade_price"`
	OpeningPrice   float64   `json:"opening_price"`
	HighPrice      float64   `json:"high_price"`
	LowPrice       float64   `json:"low_price"`
	TradeVolume    float64   `json:"trade_volume"`
	AccTradeVolume float64   `json:"acc_trade_volume"`
	AccTradePrice  float64   `json:"acc_trade_price"`
	Side           Side      `json:"side"`
	Time           time.Time `json:"time"`
}
