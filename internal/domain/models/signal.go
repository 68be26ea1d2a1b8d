package models

import "fmt"

type SignalKind int8

const (
	SignalHold SignalKind = iota
	SignalBuy
	SignalSell
	SignalUpdateTrailingStop
)

func (k SignalKind) String() string {
	switch k {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalUpdateTrailingStop:
		return "update_trailing_stop"
	default:
		return "hold"
	}
}

// Signal is a strategy decision. Only the fields of its Kind are meaningful.
type Signal struct {
	Kind                SignalKind `json:"kind"`
	Reason              string     `json:"reason,omitempty"`
	InitialTrailingStop float64    `json:"initial_trailing_stop,omitempty"`
	TakeProfit          float64    `json:"take_profit,omitempty"`
	AssetFraction       float64    `json:"asset_fraction,omitempty"`
	NewPrice            float64    `json:"new_price,omitempty"`
}

func Hold() Signal { return Signal{Kind: SignalHold} }

func Buy(reason string, trailingStop, takeProfit, assetFraction float64) Signal {
	return Signal{
		Kind:                SignalBuy,
		Reason:              reason,
		InitialTrailingStop: trailingStop,
		TakeProfit:          takeProfit,
		AssetFraction:       assetFraction,
	}
}

func Sell(reason string) Signal { return Signal{Kind: SignalSell, Reason: reason} }

func UpdateTrailingStop(price float64) Signal {
	return Signal{Kind: SignalUpdateTrailingStop, NewPrice: price}
}

func (s Signal) String() string {
	switch s.Kind {
	case SignalBuy:
		return fmt.Sprintf("Buy{%s stop=%.4f tp=%.4f frac=%.2f}", s.Reason, s.InitialTrailingStop, s.TakeProfit, s.AssetFraction)
	case SignalSell:
		return fmt.Sprintf("Sell{%s}", s.Reason)
	case SignalUpdateTrailingStop:
		return fmt.Sprintf("UpdateTrailingStop{%.4f}", s.NewPrice)
	default:
		return "Hold"
	}
}
