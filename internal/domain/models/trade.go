package models

import "time"

// Side is the aggressor side of a trade.
type Side int8

const (
	SideUnknown Side = iota
	SideBuy          // BID: buyer lifted the offer
	SideSell         // ASK: seller hit the bid
)

// ParseSide maps the exchange ask/bid marker onto a Side.
func ParseSide(s string) Side {
	switch s {
	case "BID":
		return SideBuy
	case "ASK":
		return SideSell
	default:
		return SideUnknown
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BID"
	case SideSell:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

type Trade struct {
	Market       string    `json:"market"`
	Price        float64   `json:"price"`
	Volume       float64   `json:"volume"`
	Side         Side      `json:"side"`
	Time         time.Time `json:"time"`
	SequentialID int64     `json:"sequential_id"`
}
