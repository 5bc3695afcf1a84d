// Package sample provides the fixed-or-sampled numeric parameters used for
// wait times, off durations and link qualities.
package sample

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrBadSpec is returned by Parse for a malformed parameter spec.
var ErrBadSpec = errors.New("sample: bad parameter spec")

// Param is either a fixed value or a zero-argument sampler that is
// re-evaluated on every use.
type Param struct {
	value float64
	gen   func() float64
	desc  string
	set   bool
}

// Fixed returns a Param that always yields v.
func Fixed(v float64) Param {
	return Param{value: v, desc: strconv.FormatFloat(v, 'g', -1, 64), set: true}
}

// Sampled returns a Param that calls gen on every Sample.
func Sampled(gen func() float64) Param {
	return Param{gen: gen, desc: "sampled", set: true}
}

// Sample resolves the parameter once.
func (p Param) Sample() float64 {
	if p.gen != nil {
		return p.gen()
	}
	return p.value
}

// Value returns the fixed value and true, or false for a sampled parameter.
func (p Param) Value() (float64, bool) {
	if p.gen != nil {
		return 0, false
	}
	return p.value, true
}

// IsFixed reports whether the parameter is a constant.
func (p Param) IsFixed() bool {
	return p.gen == nil
}

// IsZero reports whether the parameter was never initialized.
func (p Param) IsZero() bool {
	return !p.set
}

func (p Param) String() string {
	if !p.set {
		return "<unset>"
	}
	return p.desc
}

// quantiler is satisfied by the distuv distributions we sample from.
type quantiler interface {
	Quantile(p float64) float64
}

// fromQuantiler samples d by inverse transform over r, so that a seeded
// generator gives reproducible draws.
func fromQuantiler(d quantiler, r *rand.Rand, desc string, clamp bool) Param {
	gen := func() float64 {
		v := d.Quantile(r.Float64())
		if clamp && (v < 0 || math.IsInf(v, -1)) {
			return 0
		}
		return v
	}
	return Param{gen: gen, desc: desc, set: true}
}

// Exponential samples an exponential distribution with the given mean.
func Exponential(mean float64, r *rand.Rand) Param {
	return fromQuantiler(distuv.Exponential{Rate: 1 / mean}, r, fmt.Sprintf("exp:%g", mean), false)
}

// Uniform samples uniformly from [lo, hi).
func Uniform(lo, hi float64, r *rand.Rand) Param {
	return fromQuantiler(distuv.Uniform{Min: lo, Max: hi}, r, fmt.Sprintf("uniform:%g:%g", lo, hi), false)
}

// Normal samples a normal distribution, clamping negative draws to 0.
func Normal(mean, stddev float64, r *rand.Rand) Param {
	return fromQuantiler(distuv.Normal{Mu: mean, Sigma: stddev}, r, fmt.Sprintf("normal:%g:%g", mean, stddev), true)
}

// LogNormal samples a log-normal distribution.
func LogNormal(mu, sigma float64, r *rand.Rand) Param {
	return fromQuantiler(distuv.LogNormal{Mu: mu, Sigma: sigma}, r, fmt.Sprintf("lognormal:%g:%g", mu, sigma), false)
}

// Parse builds a Param from a textual spec:
//
//	2.5                 fixed value
//	exp:MEAN            exponential with the given mean
//	uniform:MIN:MAX     uniform on [MIN, MAX)
//	normal:MEAN:SD      normal, negative draws clamped to 0
//	lognormal:MU:SIGMA  log-normal
func Parse(spec string, r *rand.Rand) (Param, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Param{}, fmt.Errorf("%w: empty", ErrBadSpec)
	}

	parts := strings.Split(spec, ":")
	args := make([]float64, 0, len(parts)-1)
	for _, raw := range parts[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Param{}, fmt.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
		}
		args = append(args, v)
	}

	if len(parts) == 1 {
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Param{}, fmt.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
		}
		return Fixed(v), nil
	}

	if r == nil {
		return Param{}, fmt.Errorf("%w: %q needs a random source", ErrBadSpec, spec)
	}

	switch kind := strings.ToLower(parts[0]); {
	case (kind == "exp" || kind == "exponential") && len(args) == 1:
		if args[0] <= 0 {
			return Param{}, fmt.Errorf("%w: %q: mean must be positive", ErrBadSpec, spec)
		}
		return Exponential(args[0], r), nil
	case kind == "uniform" && len(args) == 2:
		if args[1] <= args[0] {
			return Param{}, fmt.Errorf("%w: %q: max must exceed min", ErrBadSpec, spec)
		}
		return Uniform(args[0], args[1], r), nil
	case kind == "normal" && len(args) == 2:
		if args[1] <= 0 {
			return Param{}, fmt.Errorf("%w: %q: stddev must be positive", ErrBadSpec, spec)
		}
		return Normal(args[0], args[1], r), nil
	case kind == "lognormal" && len(args) == 2:
		if args[1] <= 0 {
			return Param{}, fmt.Errorf("%w: %q: sigma must be positive", ErrBadSpec, spec)
		}
		return LogNormal(args[0], args[1], r), nil
	}

	return Param{}, fmt.Errorf("%w: %q", ErrBadSpec, spec)
}
