package analysis

import (
	"math"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
)

// Estimator computes the largest Lyapunov exponent from a reference
// trajectory and a companion that was renormalised to InitialDistance every
// RenormSteps iterations.
//
// Algorithm:
// 1. Skip min(TransientSkipSteps, n/4) leading samples
// 2. For each remaining index, s = |pert - ref|
// 3. Average ln(s/d0) over samples with 0 < s < ExtremeThreshold
// 4. Divide by RenormSteps, the span each log-ratio covers
type Estimator struct {
	skip    int
	d0      float64
	renorm  int
	extreme float64
}

func NewEstimator(cfg config.LyapunovConfig) *Estimator {
	return &Estimator{
		skip:    cfg.TransientSkipSteps,
		d0:      cfg.InitialDistance,
		renorm:  cfg.RenormSteps,
		extreme: cfg.ExtremeThreshold,
	}
}

// Estimate returns the exponent in natural-log units per iteration, or
// dynamo.NonChaotic when no sample has a usable separation.
func (e *Estimator) Estimate(ref, pert []dynamo.State) float64 {
	n := len(ref)
	if len(pert) < n {
		n = len(pert)
	}

	start := e.skip
	if n/4 < start {
		start = n / 4
	}

	sumLog := 0.0
	count := 0

	for i := start; i < n; i++ {
		sep := dynamo.Distance(ref[i], pert[i])
		if sep > 0 && sep < e.extreme {
			sumLog += math.Log(sep / e.d0)
			count++
		}
	}

	if count == 0 {
		return dynamo.NonChaotic
	}

	return sumLog / (float64(count) * float64(e.renorm))
}
