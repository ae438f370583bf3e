package sim

import (
	"github.com/san-kum/chaosfind/internal/dynamo"
)

// Outcome classifies how a trajectory run ended.
type Outcome int

const (
	Completed Outcome = iota
	Diverged
	Collapsed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Diverged:
		return "diverged"
	case Collapsed:
		return "collapsed"
	}
	return "unknown"
}

// Result of a single attempt. Lyapunov is dynamo.NonChaotic for every
// outcome other than Completed, and may be NonChaotic for Completed runs
// without usable separation samples.
type Result struct {
	Lyapunov     float64
	Coefficients []float64
	Trajectory   []dynamo.State
	Perturbed    []dynamo.State
	Outcome      Outcome
	Steps        int
}
