package viz

import (
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

// RenderCandidate draws a Braille preview of c in a w x h cell canvas. Two
// dimensional systems are plotted directly. Three or more dimensions are
// projected through the default orbit camera using the first three axes;
// a one dimensional system is drawn as value against step.
func RenderCandidate(c dynamo.Candidate, w, h int) string {
	return RenderCandidateView(c, w, h, 0, 0)
}

// RenderCandidateView is RenderCandidate with the orbit camera tilted and
// turned by extra angles in degrees. Lower dimensional plots ignore them.
func RenderCandidateView(c dynamo.Candidate, w, h int, tiltDeg, turnDeg float64) string {
	canvas := NewCanvas(w, h)
	points := c.Trajectory()

	switch {
	case len(points) == 0:
	case c.Dimensions >= 3:
		cam := NewOrbitCamera(DefaultElevation, DefaultAzimuth)
		cam.RotateX(tiltDeg * math.Pi / 180)
		cam.RotateY(-turnDeg * math.Pi / 180)
		Render3D(canvas, points, cam)
	case c.Dimensions == 2:
		xs, ys := axes(points, 0, 1)
		canvas.Scatter(xs, ys)
	default:
		xs := make([]float64, len(points))
		for i := range xs {
			xs[i] = float64(i)
		}
		_, ys := axes(points, 0, 0)
		canvas.Scatter(xs, ys)
	}

	return canvas.String()
}

func axes(points []dynamo.State, xi, yi int) ([]float64, []float64) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if xi >= len(p) || yi >= len(p) {
			continue
		}
		xs = append(xs, p[xi])
		ys = append(ys, p[yi])
	}
	return xs, ys
}

// Series returns one coordinate of every point, skipping non-finite values.
func Series(c dynamo.Candidate, axis int) []float64 {
	out := make([]float64, 0, len(c.Points))
	for _, p := range c.Points {
		if axis < len(p) && finite(p[axis]) {
			out = append(out, p[axis])
		}
	}
	return out
}

// BestTable renders up to limit members of set. limit <= 0 shows all.
func BestTable(set []dynamo.Candidate, limit int) string {
	if limit <= 0 || limit > len(set) {
		limit = len(set)
	}

	best := 0.0
	if len(set) > 0 {
		best = set[0].Lyapunov
	}

	rows := make([][]string, 0, limit)
	for i, c := range set[:limit] {
		id := c.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.6f", c.Lyapunov),
			strconv.Itoa(c.Dimensions),
			c.Timestamp,
			id,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers("#", "LYAPUNOV", "DIM", "TIMESTAMP", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return base.Inherit(Title)
			}
			if col == 1 && row >= 0 && row < limit {
				return base.Inherit(ExponentStyle(set[row].Lyapunov, best))
			}
			return base
		})

	return t.String()
}
