package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type MarketRequest struct {
	Code string `param:"code" json:"code" validate:"required"`
}

type BacktestRequest struct {
	Market         string             `json:"market" validate:"required"`
	Count          int                `json:"count" default:"600" validate:"gte=1,lte=20000"`
	Unit           int                `json:"unit" default:"1" validate:"oneof=1 3 5 10 15 30 60 240"`
	To             string             `json:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Warmup         int                `json:"warmup" default:"0" validate:"gte=0"`
	Strategy       string             `json:"strategy" default:"absorption" validate:"oneof=absorption mean_reversion breakout"`
	Params         map[string]float64 `json:"params"`
	InitialCapital float64            `json:"initial_capital" default:"1000000" validate:"gt=0"`
	FeePct         float64            `json:"fee_pct" default:"0.0005" validate:"gte=0,lt=1"`
}
