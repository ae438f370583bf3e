package polymap

import (
	"math/rand"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
)

// Sampler draws seed pairs and coefficient vectors. It is not safe for
// concurrent use; give each worker its own.
type Sampler struct {
	rng       *rand.Rand
	dims      int
	coeffMax  float64
	lowSeed   float64
	highSeed  float64
	initialD0 float64
}

func NewSampler(cfg *config.SearchConfig, rng *rand.Rand) *Sampler {
	return &Sampler{
		rng:       rng,
		dims:      cfg.Dimensions,
		coeffMax:  cfg.CoefficientLimit,
		lowSeed:   cfg.Density.Min / 2,
		highSeed:  cfg.Density.Max / 2,
		initialD0: cfg.Lyapunov.InitialDistance,
	}
}

func (s *Sampler) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// SamplePoints returns a seed point and a companion exactly InitialDistance
// away in a random direction.
func (s *Sampler) SamplePoints() (dynamo.State, dynamo.State) {
	point := make(dynamo.State, s.dims)
	for i := range point {
		point[i] = s.uniform(s.lowSeed, s.highSeed)
	}

	dir := make(dynamo.State, s.dims)
	mag := 0.0
	for mag == 0 {
		for i := range dir {
			dir[i] = s.uniform(-1, 1)
		}
		mag = dir.Norm()
	}

	return point, point.Add(dir.Scale(s.initialD0 / mag))
}

// SampleCoefficients returns TotalCoeffs(dims) values in
// [-CoefficientLimit/2, CoefficientLimit/2].
func (s *Sampler) SampleCoefficients() []float64 {
	coeffs := make([]float64, config.TotalCoeffs(s.dims))
	half := s.coeffMax / 2
	for i := range coeffs {
		coeffs[i] = s.uniform(-half, half)
	}
	return coeffs
}
