package polymap

import (
	"math"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
)

const (
	constantWeight  = 0.1
	linearWeight    = 0.5
	quadraticWeight = 0.25
)

// Map evaluates polynomial maps of a fixed dimensionality.
type Map struct {
	dims        int
	densityMax  float64
	convergence float64
	extreme     float64
}

func NewMap(cfg *config.SearchConfig) *Map {
	return &Map{
		dims:        cfg.Dimensions,
		densityMax:  cfg.Density.Max,
		convergence: cfg.Lyapunov.ConvergenceThreshold,
		extreme:     cfg.Lyapunov.ExtremeThreshold,
	}
}

func (m *Map) Dimensions() int { return m.dims }

// Term evaluates one output coordinate. Missing trailing coefficients are
// treated as absent terms; an overflowing result is +Inf.
func (m *Map) Term(x dynamo.State, coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	idx := 0
	result := coeffs[idx] * constantWeight
	idx++

	for i := 0; i < m.dims && i < len(x); i++ {
		if idx >= len(coeffs) {
			break
		}
		result += coeffs[idx] * x[i] * linearWeight
		idx++
	}

	// combinations with replacement of (i, j), i <= j
	for i := 0; i < m.dims && i < len(x); i++ {
		for j := i; j < m.dims && j < len(x); j++ {
			if idx >= len(coeffs) {
				break
			}
			result += coeffs[idx] * x[i] * x[j] * quadraticWeight
			idx++
		}
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return math.Inf(1)
	}
	return result
}

// Advance applies the map once and clamps the result to the density bound.
func (m *Map) Advance(x dynamo.State, coeffs []float64) dynamo.State {
	next := make(dynamo.State, m.dims)
	per := len(coeffs) / m.dims

	for d := 0; d < m.dims; d++ {
		start := d * per
		next[d] = m.Term(x, coeffs[start:start+per])
	}

	return m.Normalize(next)
}

// Normalize rescales x onto the density-max sphere when it lies outside it.
// Non-finite points are returned unchanged so IsTerminal can flag them.
func (m *Map) Normalize(x dynamo.State) dynamo.State {
	if !x.IsValid() {
		return x
	}
	mag := x.Norm()
	if math.IsInf(mag, 1) {
		// squares overflowed although every coordinate is finite
		peak := 0.0
		for _, v := range x {
			peak = math.Max(peak, math.Abs(v))
		}
		x = x.Scale(1 / peak)
		mag = x.Norm()
	}
	if mag > m.densityMax {
		return x.Scale(m.densityMax / mag)
	}
	return x
}

// IsTerminal reports divergence (norm >= extreme threshold, or non-finite)
// or collapse onto a fixed point (norm <= convergence threshold).
func (m *Map) IsTerminal(x dynamo.State) bool {
	mag := x.Norm()
	if math.IsNaN(mag) {
		return true
	}
	return mag >= m.extreme || mag <= m.convergence
}

// Diverged distinguishes divergence from collapse for a terminal point.
func (m *Map) Diverged(x dynamo.State) bool {
	mag := x.Norm()
	return math.IsNaN(mag) || mag >= m.extreme
}
