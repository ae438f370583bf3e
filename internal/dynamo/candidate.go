package dynamo

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the one-second resolution timestamp stored with every
// candidate.
const TimestampLayout = "20060102_150405"

// Candidate is a discovered system. Values are copied on construction and
// must not be mutated afterwards.
type Candidate struct {
	ID           string      `json:"id,omitempty"`
	Dimensions   int         `json:"dimensions"`
	ParamCount   int         `json:"paramCount"`
	Iterations   int         `json:"iterations"`
	Coefficients []float64   `json:"coefficients"`
	Lyapunov     float64     `json:"lyapunov"`
	Points       [][]float64 `json:"points"`
	Timestamp    string      `json:"timestamp"`
}

// NewCandidate builds a candidate stamped with now and a fresh random ID.
func NewCandidate(dims, paramCount, iterations int, coeffs []float64, lyapunov float64, points []State, now time.Time) Candidate {
	c := Candidate{
		ID:           uuid.NewString(),
		Dimensions:   dims,
		ParamCount:   paramCount,
		Iterations:   iterations,
		Coefficients: make([]float64, len(coeffs)),
		Lyapunov:     lyapunov,
		Points:       make([][]float64, len(points)),
		Timestamp:    now.Format(TimestampLayout),
	}
	copy(c.Coefficients, coeffs)
	for i, p := range points {
		c.Points[i] = p.Clone()
	}
	return c
}

// UnmarshalJSON decodes a stored candidate strictly, rejecting unknown
// fields. Files written with the snake_case "param_count" key still load.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	var aux struct {
		plain
		LegacyParamCount *int `json:"param_count"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*c = Candidate(aux.plain)
	if c.ParamCount == 0 && aux.LegacyParamCount != nil {
		c.ParamCount = *aux.LegacyParamCount
	}
	return nil
}

// Key identifies the candidate in file names. Timestamps alone collide when
// several systems are admitted within the same second.
func (c Candidate) Key() string {
	if len(c.ID) >= 8 {
		return c.Timestamp + "_" + c.ID[:8]
	}
	if c.ID != "" {
		return c.Timestamp + "_" + c.ID
	}
	return c.Timestamp
}

// Time parses the stored timestamp.
func (c Candidate) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, c.Timestamp, time.Local)
}

// Trajectory returns the points as states.
func (c Candidate) Trajectory() []State {
	out := make([]State, len(c.Points))
	for i, p := range c.Points {
		out[i] = State(p)
	}
	return out
}
