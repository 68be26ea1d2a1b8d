package models

import (
	"sort"
	"time"
)

type FootprintLevel struct {
	AskVolume float64 `json:"ask_volume"`
	BidVolume float64 `json:"bid_volume"`
}

func (l FootprintLevel) Total() float64 { return l.AskVolume + l.BidVolume }

// Delta is ask minus bid volume at one price.
func (l FootprintLevel) Delta() float64 { return l.AskVolume - l.BidVolume }

// Footprint maps exact trade prices of one finalized minute to traded volume.
type Footprint struct {
	Minute time.Time
	Levels map[float64]FootprintLevel
}

func NewFootprint(minute time.Time) Footprint {
	return Footprint{Minute: minute, Levels: make(map[float64]FootprintLevel)}
}

// Add folds one trade into its price level. Sell-aggressor trades count as ask
// volume; buy and unknown sides count as bid volume.
func (f *Footprint) Add(t Trade) {
	lvl := f.Levels[t.Price]
	if t.Side == SideSell {
		lvl.AskVolume += t.Volume
	} else {
		lvl.BidVolume += t.Volume
	}
	f.Levels[t.Price] = lvl
}

// Prices returns the price levels in ascending order.
func (f Footprint) Prices() []float64 {
	out := make([]float64, 0, len(f.Levels))
	for p := range f.Levels {
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}

func (f Footprint) TotalVolume() float64 {
	var sum float64
	for _, l := range f.Levels {
		sum += l.Total()
	}
	return sum
}
