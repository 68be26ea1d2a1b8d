package models

import "time"

type OrderbookUnit struct {
	AskPrice float64 `json:"ask_price"`
	BidPrice float64 `json:"bid_price"`
	AskSize  float64 `json:"ask_size"`
	BidSize  float64 `json:"bid_size"`
}

type Orderbook struct {
	Market       string          `json:"market"`
	TotalAskSize float64         `json:"total_ask_size"`
	TotalBidSize float64         `json:"total_bid_size"`
	Units        []OrderbookUnit `json:"units"`
	Time         time.Time       `json:"time"`
}

// Imbalance returns (bid-ask)/(bid+ask) of the total resting size, 0 when empty.
func (o Orderbook) Imbalance() float64 {
	total := o.TotalBidSize + o.TotalAskSize
	if total <= 0 {
		return 0
	}
	return (o.TotalBidSize - o.TotalAskSize) / total
}
