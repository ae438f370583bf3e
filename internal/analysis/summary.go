package analysis

import (
	"github.com/montanaflynn/stats"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

// Summary describes a set of exponents.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize ignores sentinel values. An empty input yields a zero Summary.
func Summarize(exponents []float64) Summary {
	data := make(stats.Float64Data, 0, len(exponents))
	for _, v := range exponents {
		if !dynamo.IsNonChaotic(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return Summary{}
	}

	s := Summary{Count: len(data)}
	s.Mean, _ = data.Mean()
	s.Median, _ = data.Median()
	s.StdDev, _ = data.StandardDeviation()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	return s
}

// Exponents extracts the exponents of a candidate set in order.
func Exponents(set []dynamo.Candidate) []float64 {
	out := make([]float64, len(set))
	for i, c := range set {
		out[i] = c.Lyapunov
	}
	return out
}
