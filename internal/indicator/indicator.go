// Package indicator holds the pure price/volume functions used by strategies
// and the aggregator. Every function returns a neutral value (0, or 50 for
// RSI) when the input is shorter than the requested window.
package indicator

import (
	"math"

	"FlowTrader/internal/domain/models"
)

// Closes extracts close prices.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA is the mean of the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA seeds with the SMA of the first period values and smooths the rest
// with alpha = 2/(period+1).
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	ema := SMA(values[:period], period)
	alpha := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// TrueRanges returns one true range per candle. The first candle has no
// previous close, so its range is high-low.
func TrueRanges(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			pc := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-pc), math.Abs(c.Low-pc)))
		}
		out[i] = tr
	}
	return out
}

// AverageTrueRange is the simple mean of the last window true ranges, using
// what is available when fewer candles exist.
func AverageTrueRange(candles []models.Candle, window int) float64 {
	if window <= 0 || len(candles) == 0 {
		return 0
	}
	trs := TrueRanges(candles)
	if len(trs) > window {
		trs = trs[len(trs)-window:]
	}
	var sum float64
	for _, v := range trs {
		sum += v
	}
	return sum / float64(len(trs))
}

// ATR is Wilder's smoothed average true range.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	trs := TrueRanges(candles)
	atr := SMA(trs[:period], period)
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// AverageVolume is the mean accumulated volume of the last window candles,
// using what is available when fewer candles exist.
func AverageVolume(candles []models.Candle, window int) float64 {
	if window <= 0 || len(candles) == 0 {
		return 0
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}
	var sum float64
	for _, c := range candles {
		sum += c.AccTradeVolume
	}
	return sum / float64(len(candles))
}

// RSI is Wilder's relative strength index over closes.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bands is a Bollinger band triple.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns SMA ± k·σ (population) over the last period closes.
func Bollinger(closes []float64, period int, k float64) (Bands, bool) {
	if period <= 0 || len(closes) < period {
		return Bands{}, false
	}
	window := closes[len(closes)-period:]
	mean := SMA(window, period)
	var sq float64
	for _, v := range window {
		sq += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(sq / float64(period))
	return Bands{Upper: mean + k*sd, Middle: mean, Lower: mean - k*sd}, true
}

// HighestHigh is the maximum high of the last n candles.
func HighestHigh(candles []models.Candle, n int) float64 {
	if n <= 0 || len(candles) < n {
		return 0
	}
	hi := math.Inf(-1)
	for _, c := range candles[len(candles)-n:] {
		hi = math.Max(hi, c.High)
	}
	return hi
}
