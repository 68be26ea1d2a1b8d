package strategy

import (
	"math"

	"FlowTrader/internal/domain/models"
)

const (
	ReasonAbsorption = "Absorption breakout"
	ReasonMomentum   = "Momentum breakout"
)

type absorptionSession struct {
	active bool
	price  float64
	low    float64
}

// Absorption is the order-flow strategy: it looks for a low price level that
// soaked up abnormal volume, then buys once price holds above it with
// supportive delta. A momentum condition on the forming candle buys directly.
type Absorption struct {
	p       Params
	session absorptionSession
	lastSeq uint64
}

func NewAbsorption(p Params) *Absorption {
	return &Absorption{p: p}
}

func (s *Absorption) Name() string { return string(KindAbsorption) }

// SessionActive reports whether an absorption level is being watched.
func (s *Absorption) SessionActive() bool { return s.session.active }

// SessionPrice returns the watched absorption level, 0 when inactive.
func (s *Absorption) SessionPrice() float64 {
	if !s.session.active {
		return 0
	}
	return s.session.price
}

func (s *Absorption) Decide(st *models.MarketState, pos models.PositionState) models.Signal {
	newMinute := st.FootprintSeq != s.lastSeq
	s.lastSeq = st.FootprintSeq

	if pos.InPosition() {
		s.session = absorptionSession{}
		if s.p.TrailingRatio > 0 {
			return raiseStop(pos, st.Price*(1-s.p.TrailingRatio))
		}
		return models.Hold()
	}

	price := st.Price
	if price <= 0 || st.AvgVolume <= 0 {
		return models.Hold()
	}

	fp, hasFootprint := st.LastFootprint()
	if newMinute && !s.session.active && hasFootprint {
		if level, ok := AbsorptionPrice(fp, st.AvgVolume*s.p.VolumeThresholdMultiplier, s.p.LowerLevelFraction); ok {
			if closed, ok := st.LastFinalized(); ok {
				// The breakout check starts with the next tick.
				s.session = absorptionSession{active: true, price: level, low: closed.Low}
				return models.Hold()
			}
		}
	}

	if s.session.active {
		switch {
		case price < s.session.price:
			s.session = absorptionSession{}
		case price > s.session.price && hasFootprint && MeanDeltaAbove(fp, price) > s.p.AbsorptionDeltaRatio:
			low := s.session.low
			s.session = absorptionSession{}
			if sig := riskRewardBuy(ReasonAbsorption, price, low, s.p.RiskRewardRatio, s.p.AssetFraction); sig.Kind == models.SignalBuy {
				return sig
			}
		}
	}

	return s.momentum(st, price)
}

func (s *Absorption) momentum(st *models.MarketState, price float64) models.Signal {
	if !st.HasMutation || st.AvgRange <= 0 {
		return models.Hold()
	}
	m := st.Mutation
	if !m.Bullish() ||
		m.AccTradeVolume <= st.AvgVolume*s.p.MomentumVolumeMultiplier ||
		m.Range() <= st.AvgRange*s.p.MomentumRangeMultiplier {
		return models.Hold()
	}
	return riskRewardBuy(ReasonMomentum, price, m.Low, s.p.RiskRewardRatio, s.p.AssetFraction)
}

// AbsorptionPrice picks, among the lowest fraction of price levels (by count),
// the level whose volume exceeds threshold by the most. Ties keep the lower price.
func AbsorptionPrice(fp models.Footprint, threshold, fraction float64) (float64, bool) {
	prices := fp.Prices()
	n := int(math.Floor(float64(len(prices)) * fraction))
	if n <= 0 {
		return 0, false
	}
	var (
		best    float64
		bestVol float64
		found   bool
	)
	for _, p := range prices[:n] {
		v := fp.Levels[p].Total()
		if v > threshold && (!found || v > bestVol) {
			best, bestVol, found = p, v, true
		}
	}
	return best, found
}

// MeanDeltaAbove averages ask-minus-bid volume over the levels strictly above
// price, summed in ascending price order; 0 when there are none.
func MeanDeltaAbove(fp models.Footprint, price float64) float64 {
	var (
		sum float64
		n   int
	)
	for _, p := range fp.Prices() {
		if p > price {
			sum += fp.Levels[p].Delta()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
