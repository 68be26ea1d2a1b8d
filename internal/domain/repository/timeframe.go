package repository

import "time"

// Unit is a candle resolution in minutes.
type Unit int

const (
	Unit1m   Unit = 1
	Unit3m   Unit = 3
	Unit5m   Unit = 5
	Unit10m  Unit = 10
	Unit15m  Unit = 15
	Unit30m  Unit = 30
	Unit60m  Unit = 60
	Unit240m Unit = 240
)

// IsValidUnit returns true if u is a supported minute-candle unit.
func IsValidUnit(u Unit) bool {
	switch u {
	case Unit1m, Unit3m, Unit5m, Unit10m, Unit15m, Unit30m, Unit60m, Unit240m:
		return true
	default:
		return false
	}
}

// DefaultUnit returns the default unit.
func DefaultUnit() Unit { return Unit1m }

// NormalizeUnit converts a raw minute count to a valid unit (or default).
func NormalizeUnit(n int) Unit {
	u := Unit(n)
	if IsValidUnit(u) {
		return u
	}
	return DefaultUnit()
}

func (u Unit) Duration() time.Duration { return time.Duration(u) * time.Minute }
