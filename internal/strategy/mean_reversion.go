package strategy

import (
	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/indicator"
)

const (
	ReasonReversion  = "RSI/Bollinger reversion"
	ReasonOverbought = "RSI overbought"
)

// MeanReversion buys oversold closes below the lower Bollinger band, trails an
// ATR stop and exits on overbought RSI.
type MeanReversion struct {
	p Params
}

func NewMeanReversion(p Params) *MeanReversion { return &MeanReversion{p: p} }

func (s *MeanReversion) Name() string { return string(KindMeanReversion) }

func (s *MeanReversion) Decide(st *models.MarketState, pos models.PositionState) models.Signal {
	need := max(s.p.RSIPeriod+1, s.p.BollingerPeriod, s.p.ATRPeriod)
	if len(st.History) < need || st.Price <= 0 {
		return models.Hold()
	}
	closes := append(indicator.Closes(st.History), st.Price)
	rsi := indicator.RSI(closes, s.p.RSIPeriod)
	atr := indicator.ATR(st.History, s.p.ATRPeriod)

	if pos.InPosition() {
		if rsi >= s.p.RSIOverbought {
			return models.Sell(ReasonOverbought)
		}
		if atr > 0 {
			return raiseStop(pos, st.Price-s.p.ATRMultiplier*atr)
		}
		return models.Hold()
	}

	bands, ok := indicator.Bollinger(closes, s.p.BollingerPeriod, s.p.BollingerK)
	if !ok || atr <= 0 || rsi >= s.p.RSIOversold || st.Price >= bands.Lower {
		return models.Hold()
	}
	stop := st.Price - s.p.ATRMultiplier*atr
	if stop >= st.Price {
		return models.Hold()
	}
	target := bands.Middle
	if target <= st.Price {
		target = st.Price + (st.Price-stop)*s.p.RiskRewardRatio
	}
	return models.Buy(ReasonReversion, stop, target, s.p.AssetFraction)
}
