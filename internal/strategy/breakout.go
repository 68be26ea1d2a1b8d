package strategy

import (
	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/indicator"
)

const ReasonBreakout = "Range breakout"

// Breakout buys when price clears the prior lookback high while above its
// trend EMA, with an ATR stop that trails upward.
type Breakout struct {
	p Params
}

func NewBreakout(p Params) *Breakout { return &Breakout{p: p} }

func (s *Breakout) Name() string { return string(KindBreakout) }

func (s *Breakout) Decide(st *models.MarketState, pos models.PositionState) models.Signal {
	need := max(s.p.BreakoutLookback, s.p.ATRPeriod, s.p.TrendEMAPeriod)
	if len(st.History) < need || st.Price <= 0 {
		return models.Hold()
	}
	atr := indicator.ATR(st.History, s.p.ATRPeriod)
	if atr <= 0 {
		return models.Hold()
	}
	if pos.InPosition() {
		return raiseStop(pos, st.Price-s.p.ATRMultiplier*atr)
	}

	high := indicator.HighestHigh(st.History, s.p.BreakoutLookback)
	ema := indicator.EMA(indicator.Closes(st.History), s.p.TrendEMAPeriod)
	if st.Price <= high || st.Price <= ema {
		return models.Hold()
	}
	return riskRewardBuy(ReasonBreakout, st.Price, st.Price-s.p.ATRMultiplier*atr, s.p.RiskRewardRatio, s.p.AssetFraction)
}
