// Package genes implements the ten technical-indicator gene variants that
// make up a chromosome. Every gene is a closed, tagged variant (no open
// registration) dispatched through the New factory, per the "polymorphism
// over gene types" design note: a sum type over ten concrete
// implementations rather than an extensible interface hierarchy.
package genes

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tradingdna/evolve/pkg/types"
)

// Type identifies one of the ten closed gene variants.
type Type string

const (
	RSI                Type = "rsi"
	MACD               Type = "macd"
	MovingAverage      Type = "moving_average"
	Bollinger          Type = "bollinger"
	Stochastic         Type = "stochastic"
	ATR                Type = "atr"
	OBV                Type = "obv"
	Volume             Type = "volume"
	VolatilityBreakout Type = "volatility_breakout"
	Candlestick        Type = "candlestick"
)

// AllTypes lists the closed set of gene variants, in a stable order used
// for deterministic fingerprint canonicalization.
var AllTypes = []Type{RSI, MACD, MovingAverage, Bollinger, Stochastic, ATR, OBV, Volume, VolatilityBreakout, Candlestick}

// Constraint describes the legal range of one parameter: a numeric
// [Min, Max] or, when Enum is non-empty, a categorical set of allowed
// string values.
type Constraint struct {
	Min, Max float64
	Enum     []string
}

func (c Constraint) categorical() bool { return len(c.Enum) > 0 }

// Schema is a gene type's parameter-constraint descriptor, per spec 4.2's
// per-gene "constraints" configuration block.
type Schema map[string]Constraint

// Params holds one gene instance's parameter values: float64 for numeric
// parameters, string for categorical ones.
type Params map[string]any

// Clone returns a deep copy of the parameter map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MutationEvent records one in-place parameter perturbation, appended to a
// gene's mutation history.
type MutationEvent struct {
	Timestamp int64  `json:"timestamp"`
	Param     string `json:"param"`
	OldValue  any    `json:"oldValue"`
	NewValue  any    `json:"newValue"`
}

// Gene is the common contract every indicator variant implements.
type Gene interface {
	Type() Type
	Params() Params
	SetParams(Params) error
	Schema() Schema
	Validate() error
	// CalculateSignal computes a bounded signal in [-1,1] from an OHLCV
	// window (oldest-first, window[len-1] is the current bar). Returns 0
	// when the window is shorter than the gene's minimum length or
	// contains non-finite values.
	CalculateSignal(window []types.OHLCV) float64
	// MutateParameter resamples one named parameter in place, respecting
	// its schema bounds, and returns the event recorded for it.
	MutateParameter(name string, r *rand.Rand) (MutationEvent, error)
	Clone() Gene
}

type ctor func(Params) Gene

var registry = map[Type]ctor{
	RSI:                newRSI,
	MACD:               newMACD,
	MovingAverage:      newMovingAverage,
	Bollinger:          newBollinger,
	Stochastic:         newStochastic,
	ATR:                newATR,
	OBV:                newOBV,
	Volume:             newVolume,
	VolatilityBreakout: newVolatilityBreakout,
	Candlestick:        newCandlestick,
}

// New builds a gene instance of the given type, filling any omitted
// parameters from the type's defaults, then validating. Missing keys that
// have no default are a validation error, not a silent zero — per spec
// 9's resolution for config keys like "touch_percentage" that aren't
// universally defaulted.
func New(t Type, params Params) (Gene, error) {
	build, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown gene type %q", t)
	}
	g := build(DefaultParams(t))
	if params != nil {
		if err := g.SetParams(params); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// DefaultParams returns the default parameter set for a gene type.
func DefaultParams(t Type) Params {
	build, ok := registry[t]
	if !ok {
		return nil
	}
	return build(nil).Params()
}

// RandomParams samples a fresh, schema-valid parameter set uniformly at
// random, used by the add_gene mutation operator.
func RandomParams(t Type, r *rand.Rand) (Params, error) {
	g, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown gene type %q", t)
	}
	base := g(nil)
	out := make(Params, len(base.Schema()))
	for name, c := range base.Schema() {
		out[name] = sampleUniform(c, r)
	}
	return out, nil
}

func sampleUniform(c Constraint, r *rand.Rand) any {
	if c.categorical() {
		return c.Enum[r.Intn(len(c.Enum))]
	}
	return c.Min + r.Float64()*(c.Max-c.Min)
}

// baseGene implements the parameter-storage and generic
// validate/mutate machinery shared by all ten variants; concrete genes
// embed it and only add CalculateSignal plus their schema/defaults.
type baseGene struct {
	typ      Type
	schema   Schema
	defaults Params
	params   Params
}

func newBase(t Type, schema Schema, defaults Params) baseGene {
	return baseGene{typ: t, schema: schema, defaults: defaults, params: defaults.Clone()}
}

func (b *baseGene) Type() Type    { return b.typ }
func (b *baseGene) Schema() Schema { return b.schema }
func (b *baseGene) Params() Params { return b.params.Clone() }

func (b *baseGene) SetParams(p Params) error {
	merged := b.params.Clone()
	for k, v := range p {
		merged[k] = v
	}
	if err := validateAgainst(b.schema, merged); err != nil {
		return err
	}
	b.params = merged
	return nil
}

func (b *baseGene) Validate() error {
	return validateAgainst(b.schema, b.params)
}

func validateAgainst(schema Schema, params Params) error {
	for name, c := range schema {
		v, ok := params[name]
		if !ok {
			return fmt.Errorf("missing required parameter %q", name)
		}
		if c.categorical() {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("parameter %q must be a string", name)
			}
			found := false
			for _, e := range c.Enum {
				if e == s {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("parameter %q = %q not in %v", name, s, c.Enum)
			}
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		if f < c.Min || f > c.Max {
			return fmt.Errorf("parameter %q = %v out of range [%v,%v]", name, f, c.Min, c.Max)
		}
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not numeric: %v", v)
	}
}

func (b *baseGene) MutateParameter(name string, r *rand.Rand) (MutationEvent, error) {
	c, ok := b.schema[name]
	if !ok {
		return MutationEvent{}, fmt.Errorf("unknown parameter %q", name)
	}
	old := b.params[name]

	var neu any
	if c.categorical() {
		neu = c.Enum[r.Intn(len(c.Enum))]
	} else {
		def, err := toFloat(b.defaults[name])
		if err != nil {
			def = (c.Min + c.Max) / 2
		}
		lo := math.Max(c.Min, 0.5*def)
		hi := math.Min(c.Max, 1.5*def)
		if hi < lo {
			lo, hi = c.Min, c.Max
		}
		neu = lo + r.Float64()*(hi-lo)
	}

	next := b.params.Clone()
	next[name] = neu
	if err := validateAgainst(b.schema, next); err != nil {
		return MutationEvent{}, err
	}
	b.params = next
	return MutationEvent{Param: name, OldValue: old, NewValue: neu}, nil
}

func (b *baseGene) float(name string) float64 {
	f, _ := toFloat(b.params[name])
	return f
}

func (b *baseGene) int(name string) int { return int(b.float(name)) }

func (b *baseGene) str(name string) string {
	s, _ := b.params[name].(string)
	return s
}

// closes extracts the closing-price series from a window as a flat
// float64 array — per the "replace pandas/NumPy reliance" design note,
// indicator math works on plain contiguous arrays, never a DataFrame.
func closes(window []types.OHLCV) []float64 {
	out := make([]float64, len(window))
	for i, b := range window {
		out[i], _ = b.Close.Float64()
	}
	return out
}

func highs(window []types.OHLCV) []float64 {
	out := make([]float64, len(window))
	for i, b := range window {
		out[i], _ = b.High.Float64()
	}
	return out
}

func lows(window []types.OHLCV) []float64 {
	out := make([]float64, len(window))
	for i, b := range window {
		out[i], _ = b.Low.Float64()
	}
	return out
}

func volumes(window []types.OHLCV) []float64 {
	out := make([]float64, len(window))
	for i, b := range window {
		out[i], _ = b.Volume.Float64()
	}
	return out
}

func allFinite(xs ...[]float64) bool {
	for _, s := range xs {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func allZero(xs []float64) bool {
	for _, v := range xs {
		if v != 0 {
			return false
		}
	}
	return true
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, v := range xs {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// sortedKeys is used where schema/params iteration order must be
// deterministic (canonical fingerprinting upstream relies on this shape).
func sortedKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
