// Package strategy holds the decision functions that turn a MarketState into
// a Signal. Every strategy is selected by Kind and built from one Params set.
package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"FlowTrader/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKind is returned by New for an unregistered kind.
var ErrUnknownKind = errors.New("unknown strategy kind")

// Strategy decides for one instrument. Implementations may keep per-instrument
// state and are owned by the goroutine that drives that instrument.
type Strategy interface {
	Name() string
	// Decide reads the market state and the current position and returns a
	// signal. It never mutates either.
	Decide(state *models.MarketState, pos models.PositionState) models.Signal
}

type Kind string

const (
	KindAbsorption    Kind = "absorption"
	KindMeanReversion Kind = "mean_reversion"
	KindBreakout      Kind = "breakout"
)

var registry = map[Kind]func(Params) Strategy{
	KindAbsorption:    func(p Params) Strategy { return NewAbsorption(p) },
	KindMeanReversion: func(p Params) Strategy { return NewMeanReversion(p) },
	KindBreakout:      func(p Params) Strategy { return NewBreakout(p) },
}

// New builds a fresh strategy instance of the given kind.
func New(kind Kind, p Params) (Strategy, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(p), nil
}

// Kinds lists the registered kinds in name order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Func adapts a plain function to Strategy.
type Func struct {
	ID string
	Fn func(state *models.MarketState, pos models.PositionState) models.Signal
}

func (f Func) Name() string { return f.ID }

func (f Func) Decide(state *models.MarketState, pos models.PositionState) models.Signal {
	return f.Fn(state, pos)
}

// Params is the threshold table shared by all kinds; each kind reads its own subset.
type Params struct {
	AssetFraction   float64 `yaml:"asset_fraction" default:"1.0" validate:"gt=0,lte=1"`
	RiskRewardRatio float64 `yaml:"risk_reward_ratio" default:"1.5" validate:"gt=0"`
	TrailingRatio   float64 `yaml:"trailing_ratio" default:"0" validate:"gte=0,lt=1"`

	// absorption
	VolumeThresholdMultiplier float64 `yaml:"volume_threshold_multiplier" default:"1.2" validate:"gt=0"`
	AbsorptionDeltaRatio      float64 `yaml:"absorption_delta_ratio" default:"0.7"`
	LowerLevelFraction        float64 `yaml:"lower_level_fraction" default:"0.4" validate:"gt=0,lte=1"`
	MomentumVolumeMultiplier  float64 `yaml:"momentum_volume_multiplier" default:"2.0" validate:"gt=0"`
	MomentumRangeMultiplier   float64 `yaml:"momentum_range_multiplier" default:"1.5" validate:"gt=0"`

	// mean reversion
	RSIPeriod       int     `yaml:"rsi_period" default:"14" validate:"gte=2"`
	RSIOversold     float64 `yaml:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	RSIOverbought   float64 `yaml:"rsi_overbought" default:"70" validate:"gte=0,lte=100"`
	BollingerPeriod int     `yaml:"bollinger_period" default:"20" validate:"gte=2"`
	BollingerK      float64 `yaml:"bollinger_k" default:"2" validate:"gt=0"`

	// breakout, and ATR stops for mean reversion
	ATRPeriod        int     `yaml:"atr_period" default:"14" validate:"gte=1"`
	ATRMultiplier    float64 `yaml:"atr_multiplier" default:"2" validate:"gt=0"`
	BreakoutLookback int     `yaml:"breakout_lookback" default:"20" validate:"gte=1"`
	TrendEMAPeriod   int     `yaml:"trend_ema_period" default:"50" validate:"gte=1"`
}

var validate = validator.New()

// DefaultParams returns Params with every default applied. It panics on a
// malformed default tag.
func DefaultParams() Params {
	var p Params
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("strategy: default params: %v", err))
	}
	return p
}

// DecodeParams overlays the given overrides on the defaults and validates
// the result. Unknown keys are rejected.
func DecodeParams(overrides map[string]float64) (Params, error) {
	p := DefaultParams()
	if len(overrides) > 0 {
		b, err := yaml.Marshal(overrides)
		if err != nil {
			return Params{}, fmt.Errorf("encode params: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Params{}, fmt.Errorf("decode params: %w", err)
		}
	}
	if err := validate.Struct(p); err != nil {
		return Params{}, fmt.Errorf("validate params: %w", err)
	}
	if p.RSIOversold >= p.RSIOverbought {
		return Params{}, fmt.Errorf("validate params: rsi_oversold must be below rsi_overbought")
	}
	return p, nil
}

// riskRewardBuy builds a Buy whose target sits rr times the stop distance
// above price. It holds when the stop is not below price.
func riskRewardBuy(reason string, price, stop, rr, fraction float64) models.Signal {
	if stop >= price || price <= 0 {
		return models.Hold()
	}
	return models.Buy(reason, stop, price+(price-stop)*rr, fraction)
}

// raiseStop returns an UpdateTrailingStop when candidate tightens the stop.
func raiseStop(pos models.PositionState, candidate float64) models.Signal {
	if candidate > pos.TrailingStopPrice && candidate > 0 {
		return models.UpdateTrailingStop(candidate)
	}
	return models.Hold()
}
