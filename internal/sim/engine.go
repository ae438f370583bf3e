package sim

import (
	"math/rand"

	"github.com/san-kum/chaosfind/internal/analysis"
	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/polymap"
)

// Engine advances a reference point and a perturbed companion under a
// sampled map and hands completed pairs to the estimator. An Engine holds no
// mutable state and may be shared between goroutines; samplers may not.
type Engine struct {
	cfg        *config.SearchConfig
	pmap       *polymap.Map
	estimator  *analysis.Estimator
	iterations int
	renorm     int
	d0         float64
}

func New(cfg *config.SearchConfig) *Engine {
	return &Engine{
		cfg:        cfg,
		pmap:       polymap.NewMap(cfg),
		estimator:  analysis.NewEstimator(cfg.Lyapunov),
		iterations: cfg.Iterations,
		renorm:     cfg.Lyapunov.RenormSteps,
		d0:         cfg.Lyapunov.InitialDistance,
	}
}

// NewSampler returns a sampler for this engine's configuration.
func (e *Engine) NewSampler(rng *rand.Rand) *polymap.Sampler {
	return polymap.NewSampler(e.cfg, rng)
}

// Run samples a seed pair and a map, then iterates them.
func (e *Engine) Run(s *polymap.Sampler) Result {
	x, xp := s.SamplePoints()
	coeffs := s.SampleCoefficients()
	return e.Iterate(x, xp, coeffs)
}

// Iterate runs the two-trajectory procedure from explicit initial points.
func (e *Engine) Iterate(x, xp dynamo.State, coeffs []float64) Result {
	res := Result{
		Lyapunov:     dynamo.NonChaotic,
		Coefficients: coeffs,
		Trajectory:   make([]dynamo.State, 0, e.iterations),
		Perturbed:    make([]dynamo.State, 0, e.iterations),
		Outcome:      Completed,
	}

	for i := 0; i < e.iterations; i++ {
		next := e.pmap.Advance(x, coeffs)
		if e.pmap.IsTerminal(next) {
			res.Outcome = e.terminalOutcome(next)
			return res
		}

		nextP := e.pmap.Advance(xp, coeffs)
		if e.pmap.IsTerminal(nextP) {
			res.Outcome = e.terminalOutcome(nextP)
			return res
		}

		if i%e.renorm == 0 && i > 0 {
			sep := nextP.Sub(next)
			if dist := sep.Norm(); dist > 0 {
				nextP = next.Add(sep.Scale(e.d0 / dist))
			}
		}

		x, xp = next, nextP
		res.Trajectory = append(res.Trajectory, x)
		res.Perturbed = append(res.Perturbed, xp)
		res.Steps++
	}

	res.Lyapunov = e.estimator.Estimate(res.Trajectory, res.Perturbed)
	return res
}

func (e *Engine) terminalOutcome(x dynamo.State) Outcome {
	if e.pmap.Diverged(x) {
		return Diverged
	}
	return Collapsed
}
